package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/reallyoldfogie/mc-replay-capture/mcpr"
)

// Finish ends the recording and writes the archive. Only the first call does
// anything; later calls, including one from the crash guard, return at once.
// Failures are logged and reported through Result and Err, never returned.
// Saved hooks run before Done is closed; a hook must not call Close.
func (r *Recorder) Finish(participants []string, markers []mcpr.Marker) {
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateSaving)) {
		return
	}

	// Enqueue checks the state under mu and pack recording under packMu, so
	// once both have been taken here nothing else reaches the queue or the
	// pack cache.
	r.mu.Lock()
	selfID := r.selfID
	r.mu.Unlock()
	r.packMu.Lock()
	r.packMu.Unlock() //nolint:staticcheck // barrier

	r.writer.stop()

	r.lock.Lock()
	saved := Saved{ID: r.id, RawPath: r.rawPath, Records: r.writer.written}
	defer func() {
		r.lock.Unlock()
		r.saved = saved
		r.state.Store(int32(StateSaved))
		if r.guard != nil {
			r.guard.deregister()
		}
		// Hooks run before done is closed so Close also waits for delivery.
		for _, fn := range r.hooks {
			fn(saved)
		}
		close(r.done)
	}()

	saved.Meta = r.metadata(participants, selfID)
	path, err := r.archivePath()
	if err != nil {
		saved.Err = err
		r.log.Error("failed to save replay", "err", err, "raw", r.rawPath)
		return
	}
	saved.Path = path

	err = r.assemble(path, mcpr.ArchiveInput{
		RecordingPath: r.rawPath,
		Meta:          saved.Meta,
		Markers:       markers,
		ResourcePacks: r.packs.Blobs(),
		RequestToHash: r.packs.Requests(),
	})
	if err != nil {
		saved.Err = fmt.Errorf("write replay %s: %w", path, err)
		r.log.Error("failed to save replay", "err", saved.Err, "raw", r.rawPath)
		return
	}

	if err := os.Remove(r.rawPath); err != nil {
		r.log.Warn("removing raw stream", "path", r.rawPath, "err", err)
	}
	if err := r.packs.Remove(); err != nil {
		r.log.Warn("removing resource pack dir", "path", r.packs.Dir(), "err", err)
	}
	r.log.Info("replay saved", "path", path, "records", saved.Records,
		"dropped", r.writer.failed, "duration_ms", saved.Meta.Duration)
}

func (r *Recorder) metadata(participants []string, selfID int) mcpr.Meta {
	start, ok := r.clock.Start()
	if !ok {
		start = r.created
	}
	meta := mcpr.Meta{
		Singleplayer: r.cfg.Singleplayer,
		ServerName:   r.cfg.WorldName,
		Duration:     int(r.clock.Last()),
		Date:         start.UnixMilli(),
		MCVersion:    mcpr.ReleaseVersion(r.host.GameVersion()),
		Protocol:     r.cfg.Protocol,
		Generator:    fmt.Sprintf("%s v%s", r.cfg.Generator, r.host.ToolVersion()),
		SelfID:       selfID,
	}
	for _, p := range participants {
		meta.AddPlayer(p)
	}
	return meta
}

func (r *Recorder) archivePath() (string, error) {
	folder, err := r.host.ReplayFolder()
	if err != nil {
		return "", fmt.Errorf("replay folder: %w", err)
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create replay folder: %w", err)
	}
	return filepath.Join(folder, r.cfg.Name+".mcpr"), nil
}

// emergencyFinish runs on the crash guard's goroutine.
func (r *Recorder) emergencyFinish(sig os.Signal) {
	if r.State() == StateIdle {
		r.log.Warn("saving replay to prevent corruption", "signal", sig.String())
		r.Finish(r.Players(), r.Markers())
	}
	select {
	case <-r.done:
	case <-time.After(time.Minute):
		r.log.Error("timed out waiting for replay to be saved", "signal", sig.String())
	}
}
