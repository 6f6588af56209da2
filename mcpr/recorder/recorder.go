// Package recorder captures a live packet stream into a ReplayMod archive.
//
// Producers call Enqueue for every clientbound packet; a background goroutine
// appends the stamped records to a raw recording.tmcpr file. Finish (or Close)
// stops that goroutine after it has drained the queue and bundles the stream,
// metadata, markers and resource packs into <ReplayFolder>/<Name>.mcpr. A
// crash guard finishes the recording if the process receives SIGINT or SIGTERM
// while it is still recording.
//
// Enqueue, MarkPaused, MarkResumed, AddPlayer and AddMarker are safe for
// concurrent use and never block on I/O. RecordResourcePack is safe for
// concurrent use and writes the pack to the cache directory.
package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/reallyoldfogie/mc-replay-capture/mcpr"
)

// DefaultGenerator prefixes the generator string written to metaData.json.
const DefaultGenerator = "mc-replay-go"

const nameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Config describes one recording.
type Config struct {
	// Name is the archive base name. Defaults to the creation date plus a
	// short random suffix.
	Name         string
	WorldName    string
	Singleplayer bool
	Protocol     int
	// Generator defaults to DefaultGenerator; the tool version is appended.
	Generator string
	// StartTime defines t=0. When zero, the first enqueued event does.
	StartTime time.Time
	// TempDir holds the raw stream and resource pack cache. Defaults to os.TempDir().
	TempDir string
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

// WithNow replaces the wall-clock source used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithArchiveLock sets the lock held while the archive is assembled. Recorders
// sharing a replay folder should share the lock.
func WithArchiveLock(l sync.Locker) Option {
	return func(r *Recorder) { r.lock = l }
}

// WithAssembler replaces mcpr.WriteArchive.
func WithAssembler(a Assembler) Option {
	return func(r *Recorder) { r.assemble = a }
}

// WithSavedHook registers fn to run after the recording reaches StateSaved.
func WithSavedHook(fn func(Saved)) Option {
	return func(r *Recorder) { r.hooks = append(r.hooks, fn) }
}

// WithCrashSignals sets the signals that trigger an emergency finish.
func WithCrashSignals(sigs ...os.Signal) Option {
	return func(r *Recorder) { r.crashSignals = sigs }
}

// WithoutCrashGuard disables the crash guard.
func WithoutCrashGuard() Option {
	return func(r *Recorder) { r.crashSignals = nil }
}

// Recorder is a single live recording.
type Recorder struct {
	id           string
	cfg          Config
	host         Host
	log          *slog.Logger
	now          func() time.Time
	lock         sync.Locker
	assemble     Assembler
	hooks        []func(Saved)
	crashSignals []os.Signal
	created      time.Time

	clock   *Clock
	queue   *eventQueue
	writer  *streamWriter
	packs   *ResourcePackCache
	rawPath string
	guard   *crashGuard

	// mu makes stamping and pushing one step so records reach the writer in
	// timestamp order. It also guards the accumulated session fields.
	mu      sync.Mutex
	players []string
	markers []mcpr.Marker
	selfID  int

	// packMu is held for reading while a resource pack is stored, so Finish
	// can wait for in-flight packs without blocking Enqueue.
	packMu sync.RWMutex

	state atomic.Int32
	done  chan struct{}
	saved Saved // written before done is closed
}

// New starts a recording: it creates the raw stream and resource pack cache,
// starts the background writer and registers the crash guard.
func New(cfg Config, host Host, opts ...Option) (*Recorder, error) {
	r := &Recorder{
		id:           uuid.NewString(),
		cfg:          cfg,
		host:         host,
		log:          slog.Default(),
		now:          time.Now,
		lock:         &sync.Mutex{},
		assemble:     mcpr.WriteArchive,
		crashSignals: []os.Signal{os.Interrupt, syscall.SIGTERM},
		queue:        newEventQueue(),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	r.log = r.log.With("component", "recorder", "recording", r.id)
	r.created = r.now()

	if r.cfg.Generator == "" {
		r.cfg.Generator = DefaultGenerator
	}
	if r.cfg.Name == "" {
		suffix, err := nanoid.Generate(nameAlphabet, 6)
		if err != nil {
			return nil, fmt.Errorf("generate replay name: %w", err)
		}
		r.cfg.Name = r.created.Format("2006_01_02_15_04_05") + "_" + suffix
	}
	base := r.cfg.TempDir
	if base == "" {
		base = os.TempDir()
	}

	packs, err := NewResourcePackCache(base, r.log)
	if err != nil {
		return nil, err
	}
	r.rawPath = filepath.Join(base, "recording-"+r.id+".tmcpr")
	stream, err := mcpr.CreateStream(r.rawPath)
	if err != nil {
		_ = packs.Remove()
		return nil, err
	}
	r.packs = packs
	r.clock = NewClock(r.now, cfg.StartTime)
	r.writer = newStreamWriter(r.queue, stream, r.log)
	r.writer.start()

	if len(r.crashSignals) > 0 {
		r.guard = newCrashGuard(r.crashSignals, r.emergencyFinish)
		r.guard.register()
	}
	r.log.Info("recording started", "name", r.cfg.Name, "raw", r.rawPath)
	return r, nil
}

// ID returns the unique id of this recording.
func (r *Recorder) ID() string { return r.id }

// Name returns the archive base name.
func (r *Recorder) Name() string { return r.cfg.Name }

// RawPath returns the path of the intermediate recording.tmcpr stream.
func (r *Recorder) RawPath() string { return r.rawPath }

// State returns the current lifecycle state.
func (r *Recorder) State() State { return State(r.state.Load()) }

// Done is closed once the recording reaches StateSaved.
func (r *Recorder) Done() <-chan struct{} { return r.done }

// Clock exposes the recording clock.
func (r *Recorder) Clock() *Clock { return r.clock }

// ResourcePacks exposes the resource pack cache.
func (r *Recorder) ResourcePacks() *ResourcePackCache { return r.packs }

// Enqueue stamps payload with the current recording time and queues it for
// the background writer. The payload must not be modified afterwards. Events
// arriving after finalization began are dropped.
func (r *Recorder) Enqueue(payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State() != StateIdle {
		r.log.Debug("dropping event after finish", "size", len(payload))
		return
	}
	r.queue.push(mcpr.Record{Timestamp: r.clock.Next(), Payload: payload})
}

// MarkPaused tells the clock the session is paused; the paused interval is
// removed from the timeline.
func (r *Recorder) MarkPaused() { r.clock.MarkPaused() }

// MarkResumed clears the paused flag.
func (r *Recorder) MarkResumed() { r.clock.MarkResumed() }

// RecordResourcePack stores a resource pack delivered for requestID.
func (r *Recorder) RecordResourcePack(requestID int, data []byte) {
	r.packMu.RLock()
	defer r.packMu.RUnlock()
	if r.State() != StateIdle {
		r.log.Debug("dropping resource pack after finish", "request", requestID)
		return
	}
	r.packs.Record(requestID, data)
}

// RecordResourcePackFile stores the resource pack file at path for requestID.
func (r *Recorder) RecordResourcePackFile(requestID int, path string) {
	r.packMu.RLock()
	defer r.packMu.RUnlock()
	if r.State() != StateIdle {
		r.log.Debug("dropping resource pack after finish", "request", requestID)
		return
	}
	r.packs.RecordFile(requestID, path)
}

// AddPlayer adds a participant to the session. Duplicates are ignored.
func (r *Recorder) AddPlayer(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p == name {
			return
		}
	}
	r.players = append(r.players, name)
}

// AddMarker adds a marker to the session.
func (r *Recorder) AddMarker(m mcpr.Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = append(r.markers, m)
}

// SetSelfID annotates the recording with the recorder's player entity id.
func (r *Recorder) SetSelfID(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selfID = id
}

// Players returns the participants added so far.
func (r *Recorder) Players() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.players...)
}

// Markers returns the markers added so far.
func (r *Recorder) Markers() []mcpr.Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mcpr.Marker(nil), r.markers...)
}

// Close finishes the recording with the accumulated players and markers,
// waits until it is saved and returns the archive error, if any.
func (r *Recorder) Close() error {
	r.Finish(r.Players(), r.Markers())
	<-r.done
	return r.saved.Err
}

// Err returns the finalization error. It is nil while the recording has not
// reached StateSaved.
func (r *Recorder) Err() error {
	if saved, ok := r.Result(); ok {
		return saved.Err
	}
	return nil
}

// Result returns the outcome of finalization and false while the recording
// has not reached StateSaved.
func (r *Recorder) Result() (Saved, bool) {
	select {
	case <-r.done:
		return r.saved, true
	default:
		return Saved{}, false
	}
}
