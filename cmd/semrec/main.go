// Package main provides the semrec binary entry point.
// Semrec records a running scene as time-indexed semantic facts, replays
// recorded sessions and exports them as RDF.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/c360studio/semrec/config"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semrec"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	natsURL    string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Semantic scene recorder",
		Long: `Semrec records a running scene as time-indexed semantic facts.

It provides:
- Recording of entities, components and properties at a fixed tick rate
- Collision and input events bounded by time intervals
- Replay of recorded sessions through a seekable timeline
- RDF export (Turtle, N-Triples, JSON-LD) with optional upload

Facts are stored in SQLite or NATS KV and optionally published to NATS.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.natsURL, "nats-url", "", "NATS server URL (overrides config; invalid values fall back to localhost)")

	cmd.AddCommand(
		recordCmd(flags),
		replayCmd(flags),
		exportCmd(flags),
		sessionsCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║             Semrec v" + Version + "                      ║")
	fmt.Println("║        Semantic Scene Recorder                ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}

func newLogger(level string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// loadConfig applies the layered config, replacing the project file search
// with an explicit file when one is given. Flags override every layer.
func loadConfig(flags *globalFlags, logger *slog.Logger) (*config.Config, error) {
	loader := config.NewLoader(logger)
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = loader.LoadWithFile(flags.configPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, err
	}
	if flags.natsURL != "" {
		cfg.NATS.URL = flags.natsURL
	}
	return cfg, nil
}
