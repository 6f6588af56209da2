package mcpr

import (
	"fmt"
	"io"
	"log"
	"os"
)

// ValidateFile performs comprehensive validation of an MCPR file.
// It checks zip integrity, required files, record framing, metadata validity
// and the resource pack index.
func ValidateFile(path string) error {
	// Check file exists and has size
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("replay file not found: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("replay file is empty (0 bytes)")
	}

	a, err := ReadArchive(path)
	if err != nil {
		return err
	}

	present := make(map[string]bool, len(a.Entries))
	for _, name := range a.Entries {
		present[name] = true
	}
	if !present[RecordingEntry] {
		return fmt.Errorf("missing required file: %s", RecordingEntry)
	}
	if !present[MetaEntry] {
		return fmt.Errorf("missing required file: %s", MetaEntry)
	}
	if len(a.Records) == 0 {
		log.Printf("[mcpr] WARNING: %s is empty", RecordingEntry)
	}

	var last int32
	for i, rec := range a.Records {
		if rec.Timestamp < last {
			return fmt.Errorf("record %d: timestamp %d precedes %d", i, rec.Timestamp, last)
		}
		last = rec.Timestamp
	}

	for id, h := range a.RequestToHash {
		if _, ok := a.ResourcePacks[h]; !ok {
			return fmt.Errorf("resource pack request %d references missing pack %s", id, h)
		}
	}

	// Validate critical metadata fields
	meta := a.Meta
	if meta.FileFormat != "MCPR" {
		log.Printf("[mcpr] WARNING: unexpected file format: %s", meta.FileFormat)
	}
	if meta.FileFormatVersion < 1 || meta.FileFormatVersion > 15 {
		log.Printf("[mcpr] WARNING: unusual file format version: %d", meta.FileFormatVersion)
	}
	if meta.Protocol == 0 {
		log.Printf("[mcpr] WARNING: protocol version is 0")
	}
	if meta.Duration == 0 {
		log.Printf("[mcpr] WARNING: replay duration is 0 ms (very short)")
	}
	if int(last) > meta.Duration {
		log.Printf("[mcpr] WARNING: last record at %d ms exceeds duration %d ms", last, meta.Duration)
	}

	// Check optional but expected files
	if !present[ModsEntry] {
		log.Printf("[mcpr] WARNING: missing optional file: %s", ModsEntry)
	}
	if !present[RecordingCRCEntry] {
		log.Printf("[mcpr] WARNING: missing cache file: %s", RecordingCRCEntry)
	}

	// Log validation success with key info
	log.Printf("[mcpr] Validated %s: %s protocol %d, %d ms, %d records, %d markers, %d resource packs, %d bytes",
		path, meta.MCVersion, meta.Protocol, meta.Duration, len(a.Records), len(a.Markers), len(a.ResourcePacks), info.Size())

	return nil
}

// ValidateFileQuiet is like ValidateFile but suppresses all log output.
// Useful for CLI tools that want to control output formatting.
func ValidateFileQuiet(path string) error {
	// Temporarily suppress log output
	oldFlags := log.Flags()
	oldOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer func() {
		log.SetFlags(oldFlags)
		log.SetOutput(oldOutput)
	}()

	return ValidateFile(path)
}
