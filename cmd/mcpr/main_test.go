package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/stretchr/testify/require"

	"github.com/reallyoldfogie/mc-replay-capture/mcpr"
)

func TestParsePacketSpec(t *testing.T) {
	sp, err := parsePacketSpec("1500:38:0AFFEE")
	require.NoError(t, err)
	require.Equal(t, uint32(1500), sp.ts)
	require.Equal(t, int32(38), sp.id)
	require.Equal(t, []byte{0x0A, 0xFF, 0xEE}, sp.data)

	sp, err = parsePacketSpec("0x10:0x26:")
	require.NoError(t, err)
	require.Equal(t, uint32(16), sp.ts)
	require.Equal(t, int32(0x26), sp.id)
	require.Empty(t, sp.data)

	for _, bad := range []string{"1:2", "x:1:00", "1:y:00", "1:2:zz"} {
		_, err := parsePacketSpec(bad)
		require.Error(t, err, bad)
	}
}

func TestCreateThenValidate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cli.mcpr")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"create", "--out", out, "--protocol", "47",
		"--packet", "0:38:0A", "--packet", "250:0x26:FFEE", "--player", "alice"})
	require.NoError(t, rootCmd.Execute())
	require.Contains(t, stdout.String(), "2 packets")

	a, err := mcpr.ReadArchive(out)
	require.NoError(t, err)
	require.Len(t, a.Records, 2)
	require.Equal(t, 250, a.Meta.Duration)
	require.Equal(t, []string{"alice"}, a.Meta.Players)

	stdout.Reset()
	rootCmd.SetArgs([]string{"validate", "-q", out})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"validate", "-q", filepath.Join(t.TempDir(), "missing.mcpr")})
	require.Error(t, rootCmd.Execute())
}

func packFrames(t *testing.T, threshold int, packets ...pk.Packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, p := range packets {
		require.NoError(t, p.Pack(&buf, threshold))
	}
	return buf.Bytes()
}

func TestParseAndRecordDetectsCompression(t *testing.T) {
	var stream bytes.Buffer
	// SetCompression(256) arrives uncompressed, everything after is framed
	// with the compressed layout.
	stream.Write(packFrames(t, -1, pk.Packet{ID: setCompressionID, Data: []byte{0x80, 0x02}}))
	stream.Write(packFrames(t, 256,
		pk.Packet{ID: 0x02, Data: []byte("login success")},
		pk.Packet{ID: 0x26, Data: bytes.Repeat([]byte{0x42}, 1024)},
	))

	var got []pk.Packet
	handle := func(p pk.Packet) error {
		got = append(got, pk.Packet{ID: p.ID, Data: append([]byte(nil), p.Data...)})
		return nil
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	// The stream ends cleanly, so the only error is end of input.
	require.Error(t, parseAndRecord(&stream, handle, compressionOpts{guess: true, threshold: -1}, log))

	require.Len(t, got, 3)
	require.EqualValues(t, setCompressionID, got[0].ID)
	require.Equal(t, []byte("login success"), got[1].Data)
	require.EqualValues(t, 0x26, got[2].ID)
	require.Len(t, got[2].Data, 1024)
}

func TestParseAndRecordWithoutCompression(t *testing.T) {
	stream := bytes.NewReader(packFrames(t, -1,
		pk.Packet{ID: 0x03, Data: []byte{0x80, 0x02}},
		pk.Packet{ID: 0x21, Data: []byte{1, 2, 3}},
	))
	var ids []int32
	handle := func(p pk.Packet) error {
		ids = append(ids, int32(p.ID))
		return nil
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.Error(t, parseAndRecord(stream, handle, compressionOpts{none: true, guess: true, threshold: -1}, log))
	require.Equal(t, []int32{0x03, 0x21}, ids)
}

func TestSingleVarInt(t *testing.T) {
	v, ok := singleVarInt([]byte{0x80, 0x02})
	require.True(t, ok)
	require.Equal(t, int32(256), v)

	_, ok = singleVarInt([]byte{0x01, 0x02})
	require.False(t, ok)
	_, ok = singleVarInt(nil)
	require.False(t, ok)
}

func TestForwardWithTeeKeepsForwardingWhenTeeFails(t *testing.T) {
	src := bytes.NewReader([]byte("hello world"))
	var dst bytes.Buffer
	pr, pw := io.Pipe()
	_ = pr.Close()

	err := forwardWithTee(src, &dst, pw)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, "hello world", dst.String())
}
