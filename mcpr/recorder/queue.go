package recorder

import (
	"log/slog"
	"sync"

	"github.com/reallyoldfogie/mc-replay-capture/mcpr"
)

// eventQueue is an unbounded FIFO with a notification channel that is
// signalled on every push. Push never blocks.
type eventQueue struct {
	mu     sync.Mutex
	items  []mcpr.Record
	notify chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

func (q *eventQueue) push(rec mcpr.Record) {
	q.mu.Lock()
	q.items = append(q.items, rec)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pop() (mcpr.Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return mcpr.Record{}, false
	}
	rec := q.items[0]
	q.items[0] = mcpr.Record{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return rec, true
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// recordSink is the capability the background writer needs from the raw
// stream; *mcpr.StreamWriter implements it.
type recordSink interface {
	WriteRecord(mcpr.Record) error
	Flush() error
	Close() error
}

// streamWriter drains an eventQueue into a recordSink on its own goroutine.
type streamWriter struct {
	queue *eventQueue
	sink  recordSink
	log   *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	written int
	failed  int
}

func newStreamWriter(q *eventQueue, sink recordSink, log *slog.Logger) *streamWriter {
	return &streamWriter{
		queue:  q,
		sink:   sink,
		log:    log,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (w *streamWriter) start() {
	go w.run()
}

func (w *streamWriter) run() {
	defer close(w.done)
	defer func() {
		if err := w.sink.Close(); err != nil {
			w.log.Error("closing raw stream", "err", err)
		}
	}()

	for {
		w.drain()
		select {
		case <-w.queue.notify:
		case <-w.stopCh:
			// Events pushed before stop was requested are still written.
			w.drain()
			return
		}
	}
}

func (w *streamWriter) drain() {
	for {
		rec, ok := w.queue.pop()
		if !ok {
			return
		}
		w.write(rec)
	}
}

func (w *streamWriter) write(rec mcpr.Record) {
	if err := w.sink.WriteRecord(rec); err != nil {
		w.failed++
		w.log.Warn("dropping event", "timestamp", rec.Timestamp, "size", len(rec.Payload), "err", err)
		return
	}
	if err := w.sink.Flush(); err != nil {
		w.failed++
		w.log.Warn("flushing event", "timestamp", rec.Timestamp, "err", err)
		return
	}
	w.written++
}

// stop asks the writer to drain the queue and close the stream, then waits
// until it has done so.
func (w *streamWriter) stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
}
