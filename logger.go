package photobooth

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger logs to stdout and, when logDir is set, to a <timestamp>.log
// file in it. The returned close func flushes and closes that file.
func NewLogger(logDir string, level slog.Level) (*slog.Logger, func() error, error) {
	if logDir == "" {
		h := tint.NewHandler(os.Stdout, &tint.Options{Level: level, TimeFormat: time.DateTime})
		return slog.New(h), func() error { return nil }, nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(logDir, fmt.Sprintf("%s.log", nowAsString()))
	logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logMW := io.MultiWriter(os.Stdout, logFile)
	// no escape codes in the file
	h := tint.NewHandler(logMW, &tint.Options{Level: level, TimeFormat: time.DateTime, NoColor: true})
	closeFn := func() error {
		if err := logFile.Sync(); err != nil {
			logFile.Close()
			return err
		}
		return logFile.Close()
	}
	return slog.New(h), closeFn, nil
}
