package mcpr

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"log"
	"os"
	"sort"
	"time"
)

// Entry names inside a .mcpr archive.
const (
	RecordingEntry     = "recording.tmcpr"
	RecordingCRCEntry  = "recording.tmcpr.crc32"
	MetaEntry          = "metaData.json"
	MarkersEntry       = "markers.json"
	ModsEntry          = "mods.json"
	ResourcePackIndex  = "resourcepack/index.json"
	resourcePackPrefix = "resourcepack/"
)

// ResourcePackEntryName returns the archive entry holding the pack with the given hash.
func ResourcePackEntryName(hash string) string {
	return resourcePackPrefix + hash + ".zip"
}

// Writer streams packets into a ReplayMod .mcpr file.
//
// Usage:
//
//	w, _ := mcpr.Create("out.mcpr", mcpr.Meta{Protocol: 754})
//	defer w.Close()
//	_ = w.WritePacket(0, 0x26, payload)
//
// Records are written incrementally; the writer does not retain them in memory.
// Because ZIP entries are sequential, all records must be written before the
// first resource pack is added.
type Writer struct {
	zw        *zip.Writer
	recw      io.Writer
	meta      Meta
	duration  int32
	markers   []Marker
	packIndex map[int]string
	recDone   bool
	closed    bool
	file      *os.File    // optional, when using Create()
	crc32     hash.Hash32 // CRC32 hash for recording.tmcpr validation
}

// NewWriter creates a new MCPR writer onto the provided io.Writer.
// It immediately creates the first ZIP entry "recording.tmcpr" and expects
// records to be written there until another entry is started or Close() is called.
func NewWriter(out io.Writer, meta Meta) (*Writer, error) {
	zw := zip.NewWriter(out)
	rec, err := zw.Create(RecordingEntry)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", RecordingEntry, err)
	}

	meta.applyDefaults()
	if meta.Date == 0 {
		meta.Date = time.Now().UnixMilli()
	}

	crc := crc32.NewIEEE()
	return &Writer{
		zw:    zw,
		recw:  io.MultiWriter(rec, crc),
		meta:  meta,
		crc32: crc,
	}, nil
}

// Create opens/creates a file at path and returns a Writer that owns the file descriptor.
// Close() will also close the underlying file.
func Create(path string, meta Meta) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, meta)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.file = f
	return w, nil
}

// WriteRecord appends a single record to recording.tmcpr.
func (w *Writer) WriteRecord(rec Record) error {
	if w.closed {
		return ErrWriterClosed
	}
	if w.recDone {
		return fmt.Errorf("mcpr: %s already finished", RecordingEntry)
	}
	if err := WriteRecord(w.recw, rec); err != nil {
		return err
	}
	if rec.Timestamp > w.duration {
		w.duration = rec.Timestamp
	}
	return nil
}

// WritePacket writes a single packet frame to recording.tmcpr.
// ts is a millisecond timestamp. packetID is the protocol packet id and
// payload the raw packet bytes as they would appear on the wire after the varint id.
func (w *Writer) WritePacket(ts uint32, packetID int32, payload []byte) error {
	return w.WriteRecord(Record{Timestamp: int32(ts), Payload: EncodePacket(packetID, payload)})
}

// CopyRecording copies framed records from a raw stream into recording.tmcpr
// and returns the number of records copied. A truncated trailing record, as
// left behind by an interrupted writer, is dropped with a warning.
func (w *Writer) CopyRecording(r io.Reader) (int, error) {
	n := 0
	for {
		rec, err := ReadRecord(r)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			log.Printf("[mcpr] WARNING: dropped truncated record after %d records", n)
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := w.WriteRecord(rec); err != nil {
			return n, err
		}
		n++
	}
}

// SetSelfID updates the selfId field written to metaData.json.
// ReplayMod uses this to identify the recorder's own player entity.
func (w *Writer) SetSelfID(id int) {
	w.meta.SelfID = id
}

// AddPlayer adds a player to the replay metadata.
// This populates the "players" array in metaData.json for ReplayMod compatibility.
func (w *Writer) AddPlayer(name string) {
	w.meta.AddPlayer(name)
}

// SetMarkers replaces the markers written to markers.json on Close.
func (w *Writer) SetMarkers(markers []Marker) {
	w.markers = append([]Marker(nil), markers...)
}

// SetResourcePackIndex sets the request id to hash mapping written to
// resourcepack/index.json on Close.
func (w *Writer) SetResourcePackIndex(index map[int]string) {
	w.packIndex = make(map[int]string, len(index))
	for id, h := range index {
		w.packIndex[id] = h
	}
}

// AddResourcePack stores a resource pack blob under its content hash.
// It ends recording.tmcpr; no records may be written afterwards.
func (w *Writer) AddResourcePack(hash string, r io.Reader) error {
	ew, err := w.CreateEntry(ResourcePackEntryName(hash))
	if err != nil {
		return err
	}
	_, err = io.Copy(ew, r)
	return err
}

// CreateEntry creates a new ZIP entry for additional files (e.g., assets).
// Note: ZIP requires sequential entry writing. Only call this after you have
// finished writing packets; you cannot resume writing to recording.tmcpr afterward.
func (w *Writer) CreateEntry(name string) (io.Writer, error) {
	if w.closed {
		return nil, ErrWriterClosed
	}
	w.recDone = true
	return w.zw.Create(name)
}

func (w *Writer) writeJSON(name string, v any) error {
	ew, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	_, err = ew.Write(b)
	return err
}

// Close finalizes the recording, writes metaData.json, and closes the archive.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.recDone = true
	if int(w.duration) > w.meta.Duration {
		w.meta.Duration = int(w.duration)
	}
	w.meta.applyDefaults()

	if len(w.markers) > 0 {
		sorted := append([]Marker(nil), w.markers...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].RealTimestamp < sorted[j].RealTimestamp
		})
		if err := w.writeJSON(MarkersEntry, sorted); err != nil {
			return err
		}
	}
	if len(w.packIndex) > 0 {
		if err := w.writeJSON(ResourcePackIndex, w.packIndex); err != nil {
			return err
		}
	}
	if err := w.writeJSON(MetaEntry, w.meta); err != nil {
		return err
	}

	// Write mods.json for compatibility with ReplayMod
	modsJSON := map[string][]interface{}{
		"requiredMods": {},
	}
	if err := w.writeJSON(ModsEntry, modsJSON); err != nil {
		return err
	}

	// Write recording.tmcpr.crc32 for cache validation
	crc32Entry, err := w.zw.Create(RecordingCRCEntry)
	if err != nil {
		return fmt.Errorf("create %s: %w", RecordingCRCEntry, err)
	}
	if _, err := fmt.Fprintf(crc32Entry, "%d", w.crc32.Sum32()); err != nil {
		return err
	}

	if err := w.zw.Close(); err != nil {
		return err
	}
	w.closed = true
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// ArchiveInput gathers everything a finished recording contributes to its archive.
type ArchiveInput struct {
	// RecordingPath is the raw recording.tmcpr stream written during capture.
	RecordingPath string
	Meta          Meta
	Markers       []Marker
	// ResourcePacks maps content hash to the stored blob file.
	ResourcePacks map[string]string
	// RequestToHash maps each resource pack request id to its content hash.
	RequestToHash map[int]string
}

// WriteArchive assembles a .mcpr archive at path. The archive is written to a
// temporary sibling and renamed into place, so path never holds a partial file.
func WriteArchive(path string, in ArchiveInput) (err error) {
	src, err := os.Open(in.RecordingPath)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer src.Close()

	tmp := path + ".tmp"
	w, err := Create(tmp, in.Meta)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if err != nil {
			if w.file != nil {
				_ = w.file.Close()
			}
			_ = os.Remove(tmp)
		}
	}()

	if _, err = w.CopyRecording(src); err != nil {
		return fmt.Errorf("copy recording: %w", err)
	}
	w.SetMarkers(in.Markers)
	w.SetResourcePackIndex(in.RequestToHash)

	hashes := make([]string, 0, len(in.ResourcePacks))
	for h := range in.ResourcePacks {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	for _, h := range hashes {
		if err = addPackFile(w, h, in.ResourcePacks[h]); err != nil {
			return fmt.Errorf("resource pack %s: %w", h, err)
		}
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename archive: %w", err)
	}
	return nil
}

func addPackFile(w *Writer, hash, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return w.AddResourcePack(hash, f)
}
