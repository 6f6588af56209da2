package mcpr

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Archive is the decoded content of a .mcpr file.
type Archive struct {
	Meta          Meta
	Records       []Record
	Markers       []Marker
	RequestToHash map[int]string
	ResourcePacks map[string][]byte
	// CRC is the checksum stored in recording.tmcpr.crc32, or 0 when absent.
	CRC uint32
	// Entries lists every entry name in archive order.
	Entries []string
}

// ReadArchive loads an entire .mcpr file into memory. It is meant for
// validation and tooling, not for replaying large recordings.
func ReadArchive(path string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("not a valid zip file: %w", err)
	}
	defer zr.Close()

	a := &Archive{ResourcePacks: map[string][]byte{}}
	for _, f := range zr.File {
		a.Entries = append(a.Entries, f.Name)
		if err := a.readEntry(f); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return a, nil
}

func (a *Archive) readEntry(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	switch {
	case f.Name == RecordingEntry:
		a.Records, err = ReadRecords(rc)
		return err
	case f.Name == MetaEntry:
		return json.NewDecoder(rc).Decode(&a.Meta)
	case f.Name == MarkersEntry:
		return json.NewDecoder(rc).Decode(&a.Markers)
	case f.Name == ResourcePackIndex:
		return json.NewDecoder(rc).Decode(&a.RequestToHash)
	case f.Name == RecordingCRCEntry:
		b, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 32)
		if err != nil {
			return err
		}
		a.CRC = uint32(v)
	case strings.HasPrefix(f.Name, resourcePackPrefix) && strings.HasSuffix(f.Name, ".zip"):
		b, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		hash := strings.TrimSuffix(strings.TrimPrefix(f.Name, resourcePackPrefix), ".zip")
		a.ResourcePacks[hash] = b
	}
	return nil
}
