package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const PublicPathPrefix = "/storage/v1/object/public/"

var (
	ErrInvalidPath    = errors.New("invalid object path")
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectTooLarge = errors.New("object too large")
)

// DiskStore keeps objects as plain files under <root>/<bucket>/<path>.
type DiskStore struct {
	rootPath      string
	publicBaseURL string
}

type Object struct {
	Bucket      string
	Path        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

func NewDiskStore(rootPath, publicBaseURL string) (*DiskStore, error) {
	if rootPath == "" {
		return nil, errors.New("root path cannot be empty")
	}
	if err := pkg.EnsureDir(rootPath); err != nil {
		return nil, fmt.Errorf("ensure storage root: %w", err)
	}
	return &DiskStore{
		rootPath:      rootPath,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

type UploadParams struct {
	Bucket      string
	Path        string
	Body        io.Reader
	Size        int64
	ContentType string
}

// Upload writes the object, replacing any previous one at the same path.
// Size, when positive, is an upper bound for the body length.
func (ds *DiskStore) Upload(ctx context.Context, params UploadParams) (_ *Object, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "diskStore.upload")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	span.SetAttributes(attribute.String("object.bucket", params.Bucket))
	span.SetAttributes(attribute.String("object.path", params.Path))
	span.SetAttributes(attribute.Int64("object.size", params.Size))

	objectPath, err := ds.objectPath(params.Bucket, params.Path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(objectPath), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp object: %w", err)
	}
	defer func() {
		if err != nil {
			if removeErr := os.Remove(tmp.Name()); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				log.Errorf("disk store: remove temp object %s: %s", tmp.Name(), removeErr)
			}
		}
	}()

	body := params.Body
	if params.Size > 0 {
		body = io.LimitReader(params.Body, params.Size+1)
	}
	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("write object: %w", err)
	}
	if params.Size > 0 && written > params.Size {
		return nil, ErrObjectTooLarge
	}

	if err := os.Rename(tmp.Name(), objectPath); err != nil {
		return nil, fmt.Errorf("store object: %w", err)
	}

	log.Debugf("disk store: object [%s/%s] stored, %d bytes", params.Bucket, params.Path, written)

	return &Object{
		Bucket:      params.Bucket,
		Path:        params.Path,
		Size:        written,
		ContentType: params.ContentType,
		ModTime:     time.Now(),
	}, nil
}

// Open returns the stored object; the caller closes it.
func (ds *DiskStore) Open(ctx context.Context, bucket, objectPath string) (_ *os.File, _ *Object, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "diskStore.open")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	fullPath, err := ds.objectPath(bucket, objectPath)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, nil, ErrObjectNotFound
	}

	return file, &Object{
		Bucket:  bucket,
		Path:    objectPath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Delete removes a stored object. Unknown objects yield ErrObjectNotFound.
func (ds *DiskStore) Delete(ctx context.Context, bucket, objectPath string) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "diskStore.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	fullPath, err := ds.objectPath(bucket, objectPath)
	if err != nil {
		return err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrObjectNotFound
		}
		return err
	}
	if info.IsDir() {
		return ErrObjectNotFound
	}

	log.Debugf("disk store: deleting object [%s/%s]", bucket, objectPath)
	return os.Remove(fullPath)
}

func (ds *DiskStore) PublicURL(bucket, objectPath string) string {
	escaped := make([]string, 0, strings.Count(objectPath, "/")+2)
	escaped = append(escaped, url.PathEscape(bucket))
	for _, segment := range strings.Split(objectPath, "/") {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return ds.publicBaseURL + PublicPathPrefix + strings.Join(escaped, "/")
}

func (ds *DiskStore) objectPath(bucket, objectPath string) (string, error) {
	if err := validateSegment(bucket); err != nil {
		return "", err
	}
	if objectPath == "" || strings.HasPrefix(objectPath, "/") || strings.Contains(objectPath, "\\") {
		return "", ErrInvalidPath
	}
	for _, segment := range strings.Split(objectPath, "/") {
		if err := validateSegment(segment); err != nil {
			return "", err
		}
	}
	return filepath.Join(ds.rootPath, bucket, filepath.FromSlash(path.Clean(objectPath))), nil
}

func validateSegment(segment string) error {
	if segment == "" || segment == "." || segment == ".." || strings.HasPrefix(segment, ".") {
		return ErrInvalidPath
	}
	return nil
}
