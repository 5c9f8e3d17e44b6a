package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// LogWriter fans log output out to several writers. A failing writer does not
// stop the others; the write only fails when no writer took the entry.
type LogWriter struct {
	writers []io.Writer
}

func NewLogWriter(writers ...io.Writer) *LogWriter {
	return &LogWriter{
		writers: writers,
	}
}

func (lw *LogWriter) Write(p []byte) (int, error) {
	var errs error
	written := false
	for _, w := range lw.writers {
		if _, err := w.Write(p); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		written = true
	}
	if !written && errs != nil {
		return 0, errs
	}
	return len(p), errs
}
