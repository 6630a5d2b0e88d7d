package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sanlink/sanlink/config"
	"github.com/sanlink/sanlink/data"
	"github.com/sanlink/sanlink/gateway"
	"github.com/sanlink/sanlink/rpc"
	"github.com/sanlink/sanlink/sim"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	level := zerolog.InfoLevel
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		if parsed, err := zerolog.ParseLevel(l); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	root := &cli.Command{
		Name:    "sanlink",
		Usage:   "storage array interchange toolkit",
		Version: version,
		Commands: []*cli.Command{
			plugindCommand(),
			gatewayCommand(),
			inspectCommand(),
			pingCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func plugindCommand() *cli.Command {
	return &cli.Command{
		Name:  "plugind",
		Usage: "run the simulator plugin daemon on a unix socket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "socket", Usage: "unix socket path (overrides PLUGIN_SOCKET)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log.Info().Str("version", version).Str("commit", commit).Msg("starting sanlink plugin daemon")

			cfg, err := env.ParseAs[config.PluginConfig]()
			if err != nil {
				return fmt.Errorf("parse plugin config: %w", err)
			}
			if s := cmd.String("socket"); s != "" {
				cfg.Socket = s
			}

			// a stale socket from a previous run blocks the listener
			if err := os.Remove(cfg.Socket); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove stale socket: %w", err)
			}
			ln, err := net.Listen("unix", cfg.Socket)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Socket, err)
			}

			srv := rpc.NewServer(cfg.RequireSameUser)
			sim.New().Bind(srv)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().Str("socket", cfg.Socket).Msg("plugin listening")
			if err := srv.Serve(ctx, ln); err != nil {
				return err
			}
			log.Info().Msg("shutting down")
			return nil
		},
	}
}

func gatewayCommand() *cli.Command {
	return &cli.Command{
		Name:  "gateway",
		Usage: "run the HTTP gateway against a plugin socket",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log.Info().Str("version", version).Str("commit", commit).Msg("starting sanlink gateway")

			cfg, err := env.ParseAs[config.GatewayConfig]()
			if err != nil {
				return fmt.Errorf("parse gateway config: %w", err)
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g := gateway.NewGateway(&cfg, version, commit)
			if err := g.Start(ctx); err != nil {
				return fmt.Errorf("start gateway: %w", err)
			}

			<-ctx.Done()
			log.Info().Msg("shutting down")
			return nil
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "decode a tagged JSON document and print a summary",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "normalize", Usage: "print the re-encoded document instead of a summary"},
			&cli.BoolFlag{Name: "check", Usage: "verify the document survives a decode/encode round trip"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var raw []byte
			var err error
			if path := cmd.Args().First(); path != "" && path != "-" {
				raw, err = os.ReadFile(path)
			} else {
				raw, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}

			decoded, err := data.Unmarshal(raw)
			if err != nil {
				return fmt.Errorf("decode document: %w", err)
			}

			if cmd.Bool("check") {
				return roundTripCheck(decoded)
			}
			if cmd.Bool("normalize") {
				out, err := data.Marshal(decoded)
				if err != nil {
					return fmt.Errorf("re-encode document: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			summarize(os.Stdout, decoded)
			return nil
		},
	}
}

func roundTripCheck(decoded any) error {
	first, err := data.Marshal(decoded)
	if err != nil {
		return fmt.Errorf("re-encode document: %w", err)
	}
	again, err := data.Unmarshal(first)
	if err != nil {
		return fmt.Errorf("second decode: %w", err)
	}
	second, err := data.Marshal(again)
	if err != nil {
		return fmt.Errorf("second encode: %w", err)
	}
	if !bytes.Equal(first, second) {
		return fmt.Errorf("round trip mismatch: %d vs %d bytes", len(first), len(second))
	}
	fmt.Println("round trip OK")
	return nil
}

// summarize prints one line per entity. Non-entity values fall through to
// their Go representation.
func summarize(w io.Writer, v any) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			summarize(w, item)
		}
	case *data.System:
		fmt.Fprintf(w, "System      %-20s %s\n", t.ID, t.Name)
	case *data.Pool:
		fmt.Fprintf(w, "Pool        %-20s %-16s total=%s free=%s system=%s\n",
			t.ID, t.Name, humanize.IBytes(t.TotalSpace), humanize.IBytes(t.FreeSpace), t.SystemID)
	case *data.Volume:
		fmt.Fprintf(w, "Volume      %-20s %-16s size=%s status=0x%x system=%s\n",
			t.ID, t.Name, humanize.IBytes(t.SizeBytes()), t.Status, t.SystemID)
	case *data.FileSystem:
		fmt.Fprintf(w, "FileSystem  %-20s %-16s total=%s free=%s pool=%s\n",
			t.ID, t.Name, humanize.IBytes(t.TotalSpace), humanize.IBytes(t.FreeSpace), t.PoolID)
	case *data.Snapshot:
		fmt.Fprintf(w, "Snapshot    %-20s %-16s at %s\n",
			t.ID, t.Name, time.Unix(t.TS, 0).UTC().Format(time.RFC3339))
	case *data.NfsExport:
		fmt.Fprintf(w, "NfsExport   %-20s %s fs=%s rw=%d ro=%d\n",
			t.ID, t.ExportPath, t.FsID, len(t.RW), len(t.RO))
	case *data.AccessGroup:
		fmt.Fprintf(w, "AccessGroup %-20s %-16s initiators=%d system=%s\n",
			t.ID, t.Name, len(t.Initiators), t.SystemID)
	case *data.Initiator:
		fmt.Fprintf(w, "Initiator   %-20s %-16s type=%d\n", t.ID, t.Name, t.Type)
	case *data.BlockRange:
		fmt.Fprintf(w, "BlockRange  src=%d dest=%d count=%d\n", t.SrcBlock, t.DestBlock, t.BlockCount)
	case *data.Capabilities:
		supported := 0
		for i := 0; i < data.CapCount; i++ {
			if t.Get(i) == data.CapSupported || t.Get(i) == data.CapSupportedOffline {
				supported++
			}
		}
		fmt.Fprintf(w, "Capabilities %d of %d supported\n", supported, data.CapCount)
	default:
		fmt.Fprintf(w, "%v\n", v)
	}
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "connect to a plugin and print its info",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "socket", Value: "/run/sanlink/sim.sock", Usage: "plugin unix socket path"},
			&cli.StringFlag{Name: "uri", Value: "sim://", Usage: "array URI passed to the plugin"},
			&cli.BoolFlag{Name: "prompt", Usage: "prompt for the array password"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "call timeout"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			password := ""
			if cmd.Bool("prompt") {
				fmt.Fprint(os.Stderr, "Password: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = string(raw)
			}

			c, err := rpc.Connect(cmd.String("socket"), cmd.Duration("timeout"))
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer c.Close()

			if err := c.Startup(ctx, cmd.String("uri"), password); err != nil {
				return fmt.Errorf("startup: %w", err)
			}
			desc, pluginVersion, err := c.PluginInfo(ctx)
			if err != nil {
				return fmt.Errorf("plugin_info: %w", err)
			}
			ms, err := c.TimeoutGet(ctx)
			if err != nil {
				return fmt.Errorf("time_out_get: %w", err)
			}

			fmt.Printf("%s (version %s, timeout %dms)\n", desc, pluginVersion, ms)
			return nil
		},
	}
}
