package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LogConfig controls NDJSON event logging.
type LogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Logger appends events as NDJSON, one file per user plus an optional
// global file. Writes go through a bounded queue drained by a single
// goroutine; when the queue is full the event is dropped with a warning
// rather than blocking the scoring path.
type Logger struct {
	cfg    LogConfig
	logger *slog.Logger

	queue chan Event
	done  chan struct{}

	closeOnce sync.Once
}

// NewLogger creates the event logger and starts its writer goroutine.
// A disabled config returns a logger whose Log is a no-op.
func NewLogger(cfg LogConfig, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	l := &Logger{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
	if !cfg.Enabled && !cfg.GlobalEnabled {
		close(l.done)
		return l, nil
	}

	if cfg.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create event log dir: %w", err)
		}
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create global event log dir: %w", err)
		}
	}

	l.queue = make(chan Event, cfg.QueueSize)
	go l.run()
	return l, nil
}

// Log enqueues an event for writing. Never blocks.
func (l *Logger) Log(ev Event) {
	if l.queue == nil {
		return
	}
	select {
	case l.queue <- ev:
	default:
		l.logger.Warn("event log queue full, dropping event",
			"user_id", ev.UserID, "event_id", ev.EventID)
	}
}

// Close stops the writer after draining queued events.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		if l.queue != nil {
			close(l.queue)
			<-l.done
		}
	})
	return nil
}

func (l *Logger) run() {
	defer close(l.done)
	for ev := range l.queue {
		l.write(ev)
	}
}

func (l *Logger) write(ev Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		l.logger.Error("failed to marshal event", "error", err, "event_id", ev.EventID)
		return
	}
	line = append(line, '\n')

	if l.cfg.Enabled {
		path := filepath.Join(l.cfg.Dir, ev.UserID+".ndjson")
		if err := appendLine(path, line); err != nil {
			l.logger.Warn("failed to write event log", "error", err, "path", path)
		}
	}
	if l.cfg.GlobalEnabled {
		if err := appendLine(l.cfg.GlobalPath, line); err != nil {
			l.logger.Warn("failed to write global event log", "error", err, "path", l.cfg.GlobalPath)
		}
	}
}

func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Debug("failed to close event log file", "path", path, "error", closeErr)
		}
	}()
	_, err = f.Write(line)
	return err
}
