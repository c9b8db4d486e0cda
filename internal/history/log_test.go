package history

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/rickgao/peg-stabilizer/internal/model"
)

func record(epoch uint64, delta int64) model.RebaseRecord {
	return model.RebaseRecord{
		ID:          uuid.New(),
		Epoch:       epoch,
		Timestamp:   int64(epoch) * 1_000_000,
		Price:       1_020_000,
		Band:        model.BandLow,
		SupplyDelta: delta,
		NewSupply:   1_000_000 + delta,
	}
}

func TestLog_AppendAndQuery(t *testing.T) {
	l := NewLog(nil)

	if got := l.NextEpoch(); got != 1 {
		t.Errorf("NextEpoch = %d, want 1", got)
	}

	for epoch := uint64(1); epoch <= 3; epoch++ {
		if err := l.Append(record(epoch, int64(epoch)*100)); err != nil {
			t.Fatalf("Append(epoch=%d) failed: %v", epoch, err)
		}
	}

	if got := l.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}

	rec, ok := l.ByEpoch(2)
	if !ok {
		t.Fatal("ByEpoch(2) not found")
	}
	if rec.SupplyDelta != 200 {
		t.Errorf("SupplyDelta = %d, want 200", rec.SupplyDelta)
	}

	latest, ok := l.Latest()
	if !ok || latest.Epoch != 3 {
		t.Errorf("Latest = %+v, want epoch 3", latest)
	}

	if _, ok := l.ByEpoch(0); ok {
		t.Error("ByEpoch(0) should not exist")
	}
	if _, ok := l.ByEpoch(4); ok {
		t.Error("ByEpoch(4) should not exist")
	}
}

func TestLog_EpochMismatch(t *testing.T) {
	l := NewLog(nil)

	if err := l.Append(record(2, 100)); !errors.Is(err, ErrEpochMismatch) {
		t.Errorf("Append(epoch=2) error = %v, want ErrEpochMismatch", err)
	}
	if err := l.Append(record(1, 100)); err != nil {
		t.Fatalf("Append(epoch=1) failed: %v", err)
	}
	if err := l.Append(record(1, 100)); !errors.Is(err, ErrEpochMismatch) {
		t.Errorf("replayed epoch error = %v, want ErrEpochMismatch", err)
	}
}

func TestLog_SinkReceivesAppends(t *testing.T) {
	l := NewLog(nil)
	q := NewQueue()
	l.AttachSink(q)

	for epoch := uint64(1); epoch <= 5; epoch++ {
		if err := l.Append(record(epoch, 10)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if got := q.Len(); got != 5 {
		t.Errorf("queue Len = %d, want 5", got)
	}

	drained := q.Drain(3)
	if len(drained) != 3 {
		t.Fatalf("Drain(3) returned %d records, want 3", len(drained))
	}
	if drained[0].Epoch != 1 || drained[2].Epoch != 3 {
		t.Errorf("drained epochs = %d..%d, want 1..3 in order", drained[0].Epoch, drained[2].Epoch)
	}

	rest := q.Drain(0)
	if len(rest) != 2 {
		t.Errorf("Drain(0) returned %d records, want 2", len(rest))
	}
	if q.Drain(0) != nil {
		t.Error("Drain on empty queue should return nil")
	}
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue()

	if !q.Push(record(1, 10)) {
		t.Fatal("Push on open queue returned false")
	}
	q.Close()
	if q.Push(record(2, 10)) {
		t.Error("Push on closed queue returned true")
	}

	// Remaining items stay drainable after close.
	if got := len(q.Drain(0)); got != 1 {
		t.Errorf("Drain after close = %d records, want 1", got)
	}

	pushed, drained := q.Stats()
	if pushed != 1 || drained != 1 {
		t.Errorf("Stats = (%d, %d), want (1, 1)", pushed, drained)
	}
}

func TestWriter_StartStop(t *testing.T) {
	q := NewQueue()
	w := NewWriter(DefaultWriterConfig(), q, nil, nil)

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	m := w.Stats()
	if m.Inserts != 0 || m.Errors != 0 {
		t.Errorf("Stats = %+v, want zeroes with nothing queued", m)
	}
}
