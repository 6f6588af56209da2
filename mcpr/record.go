package mcpr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxRecordSize bounds the payload length of a single record.
const MaxRecordSize = 8 << 20

var (
	// ErrWriterClosed is returned by writers after Close.
	ErrWriterClosed = errors.New("mcpr: writer closed")
	// ErrRecordTooLarge is returned by WriteRecord for payloads over MaxRecordSize.
	ErrRecordTooLarge = errors.New("mcpr: record exceeds MaxRecordSize")
)

// Record is one timestamped entry of recording.tmcpr. Payload holds the packet
// exactly as captured (varint packet id followed by the packet body); this
// package never looks inside it.
type Record struct {
	Timestamp int32
	Payload   []byte
}

// WriteRecord writes rec framed as [timeBE:int32][lenBE:int32][payload].
// Nothing is written when the payload exceeds MaxRecordSize, so a stream
// never holds a record ReadRecord would refuse.
func WriteRecord(w io.Writer, rec Record) error {
	if len(rec.Payload) > MaxRecordSize {
		return fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(rec.Payload))
	}
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(rec.Timestamp))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(rec.Payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(rec.Payload)
	return err
}

// ReadRecord reads the next framed record from r. It returns io.EOF when r is
// exhausted on a record boundary and io.ErrUnexpectedEOF for a truncated record.
func ReadRecord(r io.Reader) (Record, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Record{}, err
	}
	size := binary.BigEndian.Uint32(hdr[4:8])
	if size > MaxRecordSize {
		return Record{}, fmt.Errorf("mcpr: record length %d exceeds limit", size)
	}
	rec := Record{
		Timestamp: int32(binary.BigEndian.Uint32(hdr[0:4])),
		Payload:   make([]byte, size),
	}
	if _, err := io.ReadFull(r, rec.Payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, err
	}
	return rec, nil
}

// ReadRecords reads every record from r until EOF.
func ReadRecords(r io.Reader) ([]Record, error) {
	var out []Record
	for {
		rec, err := ReadRecord(r)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
