package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reallyoldfogie/mc-replay-capture/mcpr"
)

type packetSpec struct {
	ts   uint32
	id   int32
	data []byte
}

// parsePacketSpec parses ts:id:hexpayload, e.g. 1500:38:0AFFEE.
func parsePacketSpec(v string) (packetSpec, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return packetSpec{}, fmt.Errorf("invalid --packet %q, want ts:id:hexpayload", v)
	}
	ts64, err := parseUint(parts[0])
	if err != nil {
		return packetSpec{}, fmt.Errorf("ts: %w", err)
	}
	id64, err := parseInt(parts[1])
	if err != nil {
		return packetSpec{}, fmt.Errorf("id: %w", err)
	}
	payload, err := hex.DecodeString(parts[2])
	if err != nil {
		return packetSpec{}, fmt.Errorf("hexpayload: %w", err)
	}
	return packetSpec{ts: uint32(ts64), id: int32(id64), data: payload}, nil
}

func parseUint(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 32)
	}
	return strconv.ParseUint(s, 10, 32)
}

func parseInt(s string) (int64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		return int64(v), err
	}
	return strconv.ParseInt(s, 10, 32)
}

var (
	createOut       string
	createProtocol  int
	createGenerator string
	createPackets   []string
	createPlayers   []string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a replay from packets given on the command line",
	RunE: func(cmd *cobra.Command, args []string) error {
		specs := make([]packetSpec, 0, len(createPackets))
		for _, v := range createPackets {
			sp, err := parsePacketSpec(v)
			if err != nil {
				return err
			}
			specs = append(specs, sp)
		}

		w, err := mcpr.Create(createOut, mcpr.Meta{Protocol: createProtocol, Generator: createGenerator})
		if err != nil {
			return fmt.Errorf("create writer: %w", err)
		}
		for _, p := range createPlayers {
			w.AddPlayer(p)
		}
		// If no packets provided, still produce a valid empty replay
		for _, sp := range specs {
			if err := w.WritePacket(sp.ts, sp.id, sp.data); err != nil {
				_ = w.Close()
				return fmt.Errorf("write packet: %w", err)
			}
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d packets)\n", createOut, len(specs))
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createOut, "out", "example.mcpr", "Output .mcpr path")
	createCmd.Flags().IntVar(&createProtocol, "protocol", 754, "MC network protocol (e.g. 754 for 1.16.5)")
	createCmd.Flags().StringVar(&createGenerator, "generator", "mc-replay-go", "Generator string in metadata")
	createCmd.Flags().StringArrayVar(&createPackets, "packet", nil, "Packet spec ts:id:hexpayload (repeatable)")
	createCmd.Flags().StringArrayVar(&createPlayers, "player", nil, "Player name or UUID (repeatable)")
}
