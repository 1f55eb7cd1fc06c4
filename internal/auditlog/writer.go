package auditlog

import (
	"sync/atomic"

	"github.com/pterm/pterm"
	"gorm.io/gorm"
)

// Writer appends AccessLogEntry rows from a bounded channel so the
// proxy's request path never blocks on a database write. When the
// channel is full, entries are dropped and counted rather than applying
// backpressure.
type Writer struct {
	db      *gorm.DB
	logger  *pterm.Logger
	entries chan AccessLogEntry
	dropped atomic.Int64
	done    chan struct{}
}

// NewWriter starts the background goroutine that drains entries into db.
// queueSize bounds how many unwritten entries may be buffered.
func NewWriter(db *gorm.DB, logger *pterm.Logger, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = 1024
	}
	w := &Writer{
		db:      db,
		logger:  logger,
		entries: make(chan AccessLogEntry, queueSize),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue submits entry for persistence. Non-blocking: if the queue is
// full the entry is dropped.
func (w *Writer) Enqueue(entry AccessLogEntry) {
	select {
	case w.entries <- entry:
	default:
		w.dropped.Add(1)
	}
}

// Dropped reports how many entries have been discarded due to a full queue.
func (w *Writer) Dropped() int64 { return w.dropped.Load() }

// Close stops accepting new entries and waits for the drain loop to exit.
func (w *Writer) Close() {
	close(w.entries)
	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)
	for entry := range w.entries {
		if err := w.db.Create(&entry).Error; err != nil {
			w.logger.Warn("failed to persist access log entry", w.logger.Args("error", err))
		}
	}
}

// Recent returns the most recently logged entries, newest first, for the
// admin surface.
func Recent(db *gorm.DB, limit int) ([]AccessLogEntry, error) {
	var entries []AccessLogEntry
	err := db.Order("timestamp DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// Count returns the total number of audited requests.
func Count(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&AccessLogEntry{}).Count(&count).Error
	return count, err
}
