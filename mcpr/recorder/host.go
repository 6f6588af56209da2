package recorder

import "github.com/reallyoldfogie/mc-replay-capture/mcpr"

// Host is what a recording needs from the surrounding application.
type Host interface {
	// GameVersion returns the running game version, e.g. "1.8-pre1".
	GameVersion() string
	// ToolVersion returns the version of the recording tool itself.
	ToolVersion() string
	// ReplayFolder returns the directory finished archives are written to.
	ReplayFolder() (string, error)
}

// StaticHost is a Host with fixed values.
type StaticHost struct {
	Game   string
	Tool   string
	Folder string
}

func (h StaticHost) GameVersion() string { return h.Game }

func (h StaticHost) ToolVersion() string { return h.Tool }

func (h StaticHost) ReplayFolder() (string, error) { return h.Folder, nil }

// Assembler writes the final archive to path. mcpr.WriteArchive is the default.
type Assembler func(path string, in mcpr.ArchiveInput) error

// State is the lifecycle of a recording. It only moves forward.
type State int32

const (
	StateIdle State = iota
	StateSaving
	StateSaved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSaving:
		return "saving"
	case StateSaved:
		return "saved"
	}
	return "unknown"
}

// Saved describes a finished recording. Err is non-nil when the archive could
// not be written; Path then names the archive that was attempted.
type Saved struct {
	ID      string
	Path    string
	RawPath string
	Meta    mcpr.Meta
	Records int
	Err     error
}
