package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/docroom/internal/health"
	"github.com/dyluth/docroom/internal/printer"
	"github.com/dyluth/docroom/internal/watch"
	"github.com/dyluth/docroom/pkg/room"
	"github.com/spf13/cobra"
)

var (
	watchOutputFormat string
	watchListenAddr   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show who is in the active document",
	Long: `Join the active document's room and stream its facepile until interrupted.

You are counted as one of the participants.

Output Formats:
  default - Human-readable lines with timestamps
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch the active document
  docroom watch

  # Export presence as JSON
  docroom watch --output=json > presence.jsonl

  # Serve /healthz and /presence while watching
  docroom watch --listen :8080`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().StringVar(&watchListenAddr, "listen", "", "Serve /healthz and /presence on this address")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "json":
		outputFormat = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			// Presence keeps retrying; show an empty room until Redis is back.
			printer.Warning("Redis at %s is unreachable, presence will show once it is back\n", s.cfg.Transport.RedisURL)
		}
	}

	if watchListenAddr != "" {
		srv := health.NewServer(s.pinger, s.ws.Facepile)
		if err := srv.Start(watchListenAddr); err != nil {
			return printer.Error(
				"failed to start status server",
				fmt.Sprintf("Could not listen on %s: %v", watchListenAddr, err),
				[]string{"Choose another address with --listen"},
			)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	active := s.ws.Active()
	if outputFormat == watch.OutputFormatDefault {
		printer.Step("Watching %q (%s), press Ctrl+C to stop\n", active.Title, room.Key(active.ID))
	}

	title := func(id string) string {
		if doc, ok := s.ws.Catalog().Get(id); ok {
			return doc.Title
		}
		return ""
	}
	return watch.StreamPresence(ctx, s.ws.Presence(), title, outputFormat, printer.Out)
}
