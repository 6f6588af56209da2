package mcpr

import (
	"encoding/json"
	"strings"
)

// CurrentFileFormatVersion is the latest ReplayMod MCPR format supported by this package.
const CurrentFileFormatVersion = 14

// Meta describes the metaData.json fields written alongside the packet stream.
// Only a subset is required by ReplayMod; optional fields are emitted when set.
type Meta struct {
	Singleplayer      bool     `json:"singleplayer"` // Always include, even if false
	ServerName        string   `json:"serverName,omitempty"`
	CustomServerName  string   `json:"customServerName,omitempty"`
	Duration          int      `json:"duration,omitempty"` // milliseconds
	Date              int64    `json:"date,omitempty"`     // unix ms
	MCVersion         string   `json:"mcversion,omitempty"`
	FileFormat        string   `json:"fileFormat,omitempty"`
	FileFormatVersion int      `json:"fileFormatVersion,omitempty"`
	Protocol          int      `json:"protocol,omitempty"` // MC network protocol id
	Generator         string   `json:"generator,omitempty"`
	SelfID            int      `json:"selfId,omitempty"`
	Players           []string `json:"players,omitempty"`
}

func (m *Meta) applyDefaults() {
	if m.FileFormat == "" {
		m.FileFormat = "MCPR"
	}
	if m.FileFormatVersion == 0 {
		m.FileFormatVersion = CurrentFileFormatVersion
	}
	if m.Generator == "" {
		m.Generator = "mc-replay-go"
	}
}

// AddPlayer appends a player to Players unless it is already present.
// Insertion order is preserved.
func (m *Meta) AddPlayer(name string) {
	for _, p := range m.Players {
		if p == name {
			return
		}
	}
	m.Players = append(m.Players, name)
}

// ReleaseVersion strips a build suffix from a game version string, keeping
// everything before the first '-' ("1.8-pre1" becomes "1.8").
func ReleaseVersion(v string) string {
	if i := strings.IndexByte(v, '-'); i >= 0 {
		return v[:i]
	}
	return v
}

// Marker is a user-placed, time-anchored annotation. Value is carried into
// markers.json untouched.
type Marker struct {
	RealTimestamp int32           `json:"realTimestamp"`
	Value         json.RawMessage `json:"value,omitempty"`
}
