package history

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/peg-stabilizer/internal/model"
)

// ErrEpochMismatch signals an append that would break the monotonic epoch
// sequence. Epochs start at 1 and increase by exactly one per record.
var ErrEpochMismatch = errors.New("history epoch mismatch")

// Log is the in-memory append-only history, indexed by epoch.
type Log struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	records []model.RebaseRecord
	sink    *Queue
}

// NewLog creates an empty history log.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// AttachSink forwards every appended record into q for persistence.
func (l *Log) AttachSink(q *Queue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = q
}

// NextEpoch returns the epoch the next appended record must carry.
func (l *Log) NextEpoch() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.records)) + 1
}

// Append adds an immutable record. The record's epoch must be exactly one
// past the latest stored epoch.
func (l *Log) Append(rec model.RebaseRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	want := uint64(len(l.records)) + 1
	if rec.Epoch != want {
		return fmt.Errorf("%w: got %d, want %d", ErrEpochMismatch, rec.Epoch, want)
	}
	l.records = append(l.records, rec)

	if l.sink != nil {
		l.sink.Push(rec)
	}
	return nil
}

// ByEpoch returns the record at the given epoch.
func (l *Log) ByEpoch(epoch uint64) (model.RebaseRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if epoch < 1 || epoch > uint64(len(l.records)) {
		return model.RebaseRecord{}, false
	}
	return l.records[epoch-1], true
}

// Latest returns the most recent record.
func (l *Log) Latest() (model.RebaseRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.records) == 0 {
		return model.RebaseRecord{}, false
	}
	return l.records[len(l.records)-1], true
}

// Len returns the number of stored records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
