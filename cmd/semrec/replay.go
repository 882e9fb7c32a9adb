package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/c360studio/semrec/replay"
	"github.com/c360studio/semrec/scene"
	"github.com/spf13/cobra"
)

func replayCmd(flags *globalFlags) *cobra.Command {
	var (
		session string
		at      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Step through a recorded session",
		Long: `Replay walks the instants of a recorded session in order and prints the
entities present at each one. With --at, only the instant in effect at that
offset from the session start is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags.logLevel)
			cfg, err := loadConfig(flags, logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx := cmd.Context()
			b, err := openBackend(ctx, cfg, false, logger)
			if err != nil {
				return err
			}
			defer b.Close(context.Background())

			iri, err := resolveSession(ctx, b.store, session)
			if err != nil {
				return err
			}

			nav := replay.NewNavigator(b.store, iri, replay.WithLogger(logger))
			defer nav.Close()
			if err := nav.LoadSession(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s: %d instants over %s\n", iri, nav.Len(), nav.Duration())

			if cmd.Flags().Changed("at") {
				inst, err := nav.SearchAt(ctx, at)
				if err != nil {
					return err
				}
				if inst == nil {
					fmt.Fprintf(out, "nothing recorded at %s\n", at)
					return nil
				}
				return printFrame(ctx, out, nav)
			}

			for nav.NextInstant(ctx) != nil {
				if err := printFrame(ctx, out, nav); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Session name or IRI (default: the only recorded session)")
	cmd.Flags().DurationVar(&at, "at", 0, "Print only the instant in effect at this offset")
	return cmd
}

// printFrame waits for the answer to the current selection and prints it.
func printFrame(ctx context.Context, w io.Writer, nav *replay.Navigator) error {
	f, err := nav.Next(ctx)
	if err != nil {
		return err
	}
	writeFrame(w, f, nav.Offset(f.Index))
	return nil
}

func writeFrame(w io.Writer, f replay.Frame, offset time.Duration) {
	ts := f.Instant.Timestamp.Format(time.RFC3339Nano)
	switch {
	case errors.Is(f.Err, scene.ErrNoSnapshot):
		fmt.Fprintf(w, "+%-10s %s  events only (%d groups)\n", offset, ts, len(f.Groups))
	case f.Err != nil:
		fmt.Fprintf(w, "+%-10s %s  error: %v\n", offset, ts, f.Err)
	case f.Content == nil:
		fmt.Fprintf(w, "+%-10s %s  empty\n", offset, ts)
	default:
		names := make([]string, 0, len(f.Content.GameObjects))
		for _, g := range f.Content.GameObjects {
			names = append(names, g.Name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "+%-10s %s  %d entities: %s\n", offset, ts, len(names), strings.Join(names, ", "))
	}
}
