package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// CombinedWriter writes every message to all of its writers, e.g. stdout and a rotated log file.
type CombinedWriter struct {
	Writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{
		Writers: append([]io.Writer(nil), writers...),
	}
}

// Write reports len(p) as written if at least one writer accepted the message.
func (cw *CombinedWriter) Write(p []byte) (int, error) {
	var err error
	okCount := 0
	for _, w := range cw.Writers {
		if _, werr := w.Write(p); werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		okCount++
	}
	if okCount == 0 {
		return 0, err
	}
	return len(p), err
}
