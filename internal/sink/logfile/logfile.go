// Package logfile implements the append-only JSON-lines telemetry sink
// (§6 "Persisted state"): one line per cycle's timestamp bucket. It is
// grounded on the teacher's internal/log/appender_file.go, which wraps
// gopkg.in/natefinch/lumberjack.v2 for size/age-based rotation; this
// sink reuses the same rotating writer for the telemetry log instead of
// the structured application log.
package logfile

import (
	"context"
	"encoding/json"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"icc.tech/hil-supervisor/internal/telemetry"
)

// Sink appends one JSON line per timestamp bucket to a rotating log file.
type Sink struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
}

// Config mirrors lumberjack.Logger's rotation knobs.
type Config struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New creates a Sink writing to cfg.Path, rotating per cfg.
func New(cfg Config) *Sink {
	return &Sink{
		writer: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
	}
}

// Publish appends one JSON line per timestamp bucket in snapshot, in
// ascending timestamp order (§4.4 "Ordering rule"), matching §6's
// "timestamp (float seconds) to a list of points" persisted-state shape.
func (s *Sink) Publish(ctx context.Context, snapshot telemetry.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.writer)
	for _, bucket := range snapshot.Buckets() {
		if err := enc.Encode(bucket); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying rotating writer.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Close()
}
