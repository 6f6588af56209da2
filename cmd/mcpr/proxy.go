package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/spf13/cobra"

	"github.com/reallyoldfogie/mc-replay-capture/adapters"
	"github.com/reallyoldfogie/mc-replay-capture/internal/config"
	"github.com/reallyoldfogie/mc-replay-capture/internal/sink"
	"github.com/reallyoldfogie/mc-replay-capture/mcpr/recorder"
)

// Minimal TCP proxy that records server->client Minecraft packets into an MCPR file.
//
// Limitations:
// - Only handles a single client connection and exits after it closes.
// - Compression support is optional and limited: it can auto-detect SetCompression (login id=0x03) for many versions.
// - Does not attempt protocol translation; it simply splits frames and records packet id + payload.

// setCompressionID is the login-state SetCompression packet id.
const setCompressionID = 0x03

type compressionOpts struct {
	none      bool // server never enables compression
	guess     bool // watch for SetCompression during login
	threshold int  // forced threshold, -1 when not forced
}

var (
	proxyListen     string
	proxyUpstream   string
	proxyName       string
	proxyConfigPath string
	proxyProtocol   int
	proxyCompress   = compressionOpts{threshold: -1}
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Proxy one client connection and record clientbound packets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(proxyConfigPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("protocol") {
			cfg.Protocol = proxyProtocol
		}
		return runProxy(cmd.Context(), cfg)
	},
}

func init() {
	f := proxyCmd.Flags()
	f.StringVar(&proxyListen, "listen", ":25566", "Local listen address (proxy)")
	f.StringVar(&proxyUpstream, "upstream", "127.0.0.1:25565", "Upstream Minecraft server address")
	f.StringVar(&proxyName, "name", "", "Replay name (default: date and random suffix)")
	f.StringVar(&proxyConfigPath, "config", "mcpr.toml", "Path to TOML config (optional)")
	f.IntVar(&proxyProtocol, "protocol", 754, "MC network protocol number (e.g. 754)")
	f.BoolVar(&proxyCompress.none, "no-compress", false, "Assume server never enables compression")
	f.BoolVar(&proxyCompress.guess, "guess-compress", true, "Detect login SetCompression and enable compression handling")
	f.IntVar(&proxyCompress.threshold, "compression-threshold", -1, "Force compression enabled with given threshold (>=0)")
}

func openSinks(ctx context.Context, cfg *config.Config) []sink.Sink {
	var sinks []sink.Sink
	if cfg.NATSURL != "" {
		n, err := sink.NewNATSNotifier(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Warn("NATS notifications disabled", "err", err)
		} else {
			sinks = append(sinks, n)
		}
	}
	if cfg.S3Bucket != "" {
		u, err := sink.NewS3Uploader(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			logger.Warn("S3 upload disabled", "err", err)
		} else {
			sinks = append(sinks, u)
		}
	}
	return sinks
}

func runProxy(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ln, err := net.Listen("tcp", proxyListen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("proxy listening", "listen", proxyListen, "upstream", proxyUpstream)

	conn, err := ln.Accept()
	_ = ln.Close()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()

	upstreamConn, err := net.Dial("tcp", proxyUpstream)
	if err != nil {
		return fmt.Errorf("dial upstream: %w", err)
	}
	defer upstreamConn.Close()

	sinks := openSinks(ctx, cfg)
	defer func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}()

	world := cfg.WorldName
	if world == "" {
		world = proxyUpstream
	}
	rec, err := recorder.New(recorder.Config{
		Name:         proxyName,
		WorldName:    world,
		Singleplayer: cfg.Singleplayer,
		Protocol:     cfg.Protocol,
		Generator:    cfg.Generator,
		TempDir:      cfg.TempDir,
	}, recorder.StaticHost{
		Game:   cfg.GameVersion,
		Tool:   config.Version,
		Folder: cfg.ReplayFolder,
	},
		recorder.WithLogger(logger),
		recorder.WithSavedHook(sink.Hook(logger, time.Minute, sinks...)),
	)
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	// Client->Server (just proxy)
	wg.Add(1)
	go func() {
		defer wg.Done()
		go func() { <-ctx.Done(); _ = conn.Close() }()
		_, _ = io.Copy(upstreamConn, conn)
		if tc, ok := upstreamConn.(*net.TCPConn); ok {
			_ = tc.CloseWrite()
		}
	}()

	// Server->Client (proxy + record via tee)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if tc, ok := conn.(*net.TCPConn); ok {
				_ = tc.CloseWrite()
			}
		}()
		go func() { <-ctx.Done(); _ = upstreamConn.Close() }()
		// Create a pipe feeding the parser without slowing down forwarding
		pr, pw := io.Pipe()
		var parseWG sync.WaitGroup
		parseWG.Add(1)
		go func() {
			defer parseWG.Done()
			handle := adapters.PacketFunc(rec, logger)
			if err := parseAndRecord(pr, handle, proxyCompress, logger); err != nil && !errors.Is(err, io.EOF) {
				logger.Warn("parser stopped", "err", err)
			}
			// Keep draining so forwarding never blocks on the tee.
			_, _ = io.Copy(io.Discard, pr)
		}()

		// Forward raw bytes and tee into parser
		if err := forwardWithTee(upstreamConn, conn, pw); err != nil && !errors.Is(err, io.EOF) {
			logger.Warn("forward", "err", err)
		}
		_ = pw.Close()
		parseWG.Wait()
	}()

	wg.Wait()

	if err := rec.Close(); err != nil {
		return fmt.Errorf("save replay: %w", err)
	}
	saved, _ := rec.Result()
	logger.Info("finalized replay", "path", saved.Path, "records", saved.Records)
	return nil
}

// forwardWithTee copies from src to dst and mirrors the bytes into tee.
// It stops on any read/write error and returns it; returns io.EOF on clean close.
func forwardWithTee(src io.Reader, dst io.Writer, tee io.Writer) error {
	buf := make([]byte, 32*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			if tee != nil {
				if _, terr := tee.Write(buf[:n]); terr != nil {
					// parser gone; keep forwarding
					tee = nil
				}
			}
		}
		if rerr != nil {
			return rerr
		}
	}
}

// parseAndRecord reads framed packets from r and hands them to handle.
// It stops once framing becomes invalid (e.g., encryption starts) or EOF.
func parseAndRecord(r io.Reader, handle func(pk.Packet) error, c compressionOpts, log *slog.Logger) error {
	br := bufio.NewReader(r)
	threshold := -1
	if c.threshold >= 0 && !c.none {
		threshold = c.threshold
	}
	var p pk.Packet
	for {
		if err := p.UnPack(br, threshold); err != nil {
			return err
		}

		// Heuristic: detect SetCompression during login if requested
		if c.guess && !c.none && threshold < 0 && p.ID == setCompressionID {
			if v, ok := singleVarInt(p.Data); ok {
				threshold = int(v)
				log.Debug("compression enabled", "threshold", threshold)
			}
		}

		if err := handle(p); err != nil {
			return err
		}
	}
}

// singleVarInt returns the value if the payload decodes to exactly one VarInt and EOF.
func singleVarInt(b []byte) (int32, bool) {
	r := bytes.NewReader(b)
	var v pk.VarInt
	if _, err := v.ReadFrom(r); err != nil {
		return 0, false
	}
	if r.Len() != 0 {
		return 0, false
	}
	return int32(v), true
}
