package profiles

import (
	"errors"

	"github.com/2beens/runlog/internal/pubsub"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

// AvatarChange is published whenever a user's avatar url is set or forgotten.
// An empty AvatarURL means the entry was dropped.
type AvatarChange struct {
	UserID    string
	AvatarURL string
}

// AvatarState owns the current avatar url per user and tells subscribers about changes.
type AvatarState struct {
	cache  *freecache.Cache
	broker *pubsub.Broker[AvatarChange]
}

// NewAvatarState creates the state with a cache of cacheSize bytes (freecache enforces a 512KB minimum).
func NewAvatarState(cacheSize int) *AvatarState {
	return &AvatarState{
		cache:  freecache.NewCache(cacheSize),
		broker: pubsub.NewBroker[AvatarChange](),
	}
}

func (as *AvatarState) Get(userID string) (string, bool) {
	avatarURL, err := as.cache.Get([]byte(userID))
	if err != nil {
		if !errors.Is(err, freecache.ErrNotFound) {
			log.Errorf("avatar state: get [%s]: %s", userID, err)
		}
		return "", false
	}
	return string(avatarURL), true
}

// Load caches the url without notifying subscribers.
func (as *AvatarState) Load(userID, avatarURL string) {
	if err := as.cache.Set([]byte(userID), []byte(avatarURL), 0); err != nil {
		log.Errorf("avatar state: load [%s]: %s", userID, err)
	}
}

func (as *AvatarState) Set(userID, avatarURL string) {
	as.Load(userID, avatarURL)
	as.broker.Publish(AvatarChange{
		UserID:    userID,
		AvatarURL: avatarURL,
	})
}

func (as *AvatarState) Forget(userID string) {
	if as.cache.Del([]byte(userID)) {
		as.broker.Publish(AvatarChange{UserID: userID})
	}
}

func (as *AvatarState) Subscribe(fn func(AvatarChange)) (cancel func()) {
	return as.broker.Subscribe(fn)
}

func (as *AvatarState) SubscribersCount() int {
	return as.broker.SubscribersCount()
}

func (as *AvatarState) Close() {
	as.broker.Close()
}
