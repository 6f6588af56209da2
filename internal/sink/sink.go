// Package sink delivers finished replays to places outside the replay folder.
package sink

import (
	"context"
	"log/slog"
	"time"

	"github.com/reallyoldfogie/mc-replay-capture/mcpr/recorder"
)

// Sink receives a replay after it has been saved successfully.
type Sink interface {
	Deliver(ctx context.Context, saved recorder.Saved) error
	Close() error
}

// SavedEvent is the JSON message published for a saved replay.
type SavedEvent struct {
	ID         string   `json:"id"`
	Path       string   `json:"path"`
	Records    int      `json:"records"`
	DurationMS int      `json:"duration_ms"`
	Date       int64    `json:"date"`
	Players    []string `json:"players,omitempty"`
	MCVersion  string   `json:"mcversion,omitempty"`
}

func newSavedEvent(s recorder.Saved) SavedEvent {
	return SavedEvent{
		ID:         s.ID,
		Path:       s.Path,
		Records:    s.Records,
		DurationMS: s.Meta.Duration,
		Date:       s.Meta.Date,
		Players:    s.Meta.Players,
		MCVersion:  s.Meta.MCVersion,
	}
}

// Hook returns a recorder saved hook that hands each successfully saved replay
// to every sink in order. Failures are logged; a failed recording is skipped.
func Hook(log *slog.Logger, timeout time.Duration, sinks ...Sink) func(recorder.Saved) {
	if log == nil {
		log = slog.Default()
	}
	return func(s recorder.Saved) {
		if s.Err != nil {
			log.Warn("not delivering failed replay", "recording", s.ID, "err", s.Err)
			return
		}
		for _, sk := range sinks {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			if err := sk.Deliver(ctx, s); err != nil {
				log.Error("delivering replay", "recording", s.ID, "path", s.Path, "err", err)
			}
			cancel()
		}
	}
}

// Noop is a Sink that does nothing.
type Noop struct{}

func (Noop) Deliver(context.Context, recorder.Saved) error { return nil }

func (Noop) Close() error { return nil }
