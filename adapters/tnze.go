// Package adapters feeds packets from github.com/Tnze/go-mc (pk.Packet) into
// a recorder.
package adapters

import (
	"log/slog"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/reallyoldfogie/mc-replay-capture/mcpr"
)

// Enqueuer is the part of *recorder.Recorder the adapters need.
type Enqueuer interface {
	Enqueue(payload []byte)
}

// PacketFunc returns a handler function compatible with go-mc's packet handler
// signature (func(pk.Packet) error). It records each received clientbound
// packet using the provided recorder and never fails.
func PacketFunc(rec Enqueuer, log *slog.Logger) func(pk.Packet) error {
	if log == nil {
		log = slog.Default()
	}
	recordCount := 0
	return func(p pk.Packet) error {
		// EncodePacket copies the body; upstream may reuse p.Data.
		rec.Enqueue(mcpr.EncodePacket(int32(p.ID), p.Data))
		recordCount++
		if recordCount%100 == 0 {
			log.Debug("recorded packets", "count", recordCount, "latest_id", p.ID, "len", len(p.Data))
		}
		return nil
	}
}
