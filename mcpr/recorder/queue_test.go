package recorder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reallyoldfogie/mc-replay-capture/mcpr"
)

type memorySink struct {
	mu      sync.Mutex
	records []mcpr.Record
	flushes int
	closes  int
	failOn  string
}

func (s *memorySink) WriteRecord(rec mcpr.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && string(rec.Payload) == s.failOn {
		return errors.New("malformed event")
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *memorySink) payloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.records))
	for i, rec := range s.records {
		out[i] = string(rec.Payload)
	}
	return out
}

func TestEventQueueFIFO(t *testing.T) {
	q := newEventQueue()
	_, ok := q.pop()
	require.False(t, ok)

	for i, p := range []string{"A", "B", "C"} {
		q.push(mcpr.Record{Timestamp: int32(i), Payload: []byte(p)})
	}
	require.Equal(t, 3, q.len())
	for _, want := range []string{"A", "B", "C"} {
		rec, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, want, string(rec.Payload))
	}
	require.Equal(t, 0, q.len())
}

func TestEventQueuePushNeverBlocks(t *testing.T) {
	q := newEventQueue()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			q.push(mcpr.Record{Timestamp: int32(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("push blocked without a consumer")
	}
	require.Equal(t, 10000, q.len())
}

func TestStreamWriterWritesInOrder(t *testing.T) {
	q := newEventQueue()
	sink := &memorySink{}
	w := newStreamWriter(q, sink, quietLogger())
	w.start()

	q.push(mcpr.Record{Payload: []byte("A")})
	q.push(mcpr.Record{Payload: []byte("B")})
	require.Eventually(t, func() bool { return len(sink.payloads()) == 2 }, time.Second, 5*time.Millisecond)

	q.push(mcpr.Record{Payload: []byte("C")})
	w.stop()

	require.Equal(t, []string{"A", "B", "C"}, sink.payloads())
	require.Equal(t, 3, w.written)
	require.Equal(t, 3, sink.flushes)
	require.Equal(t, 1, sink.closes)
}

func TestStreamWriterSkipsFailedEvent(t *testing.T) {
	q := newEventQueue()
	sink := &memorySink{failOn: "bad"}
	w := newStreamWriter(q, sink, quietLogger())
	w.start()

	for _, p := range []string{"A", "bad", "B"} {
		q.push(mcpr.Record{Payload: []byte(p)})
	}
	w.stop()

	require.Equal(t, []string{"A", "B"}, sink.payloads())
	require.Equal(t, 2, w.written)
	require.Equal(t, 1, w.failed)
}

func TestStreamWriterStopIsIdempotent(t *testing.T) {
	q := newEventQueue()
	sink := &memorySink{}
	w := newStreamWriter(q, sink, quietLogger())
	w.start()
	w.stop()
	w.stop()
	require.Equal(t, 1, sink.closes)
}
