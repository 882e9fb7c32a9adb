package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/c360studio/semrec/config"
	"github.com/c360studio/semrec/export"
	"github.com/c360studio/semrec/objectstore"
	"github.com/spf13/cobra"
)

// exportOptions selects what to export and where.
type exportOptions struct {
	session string
	format  string
	profile string
	out     string
	upload  bool
}

func exportCmd(flags *globalFlags) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a recorded session as RDF",
		Long: `Export writes every fact of a recorded session as Turtle, N-Triples or
JSON-LD, aligned with the BFO or CCO upper ontologies when a profile asks
for it. With --upload the file is also stored in the configured bucket;
bucket credentials are read from SEMREC_S3_ACCESS_KEY and
SEMREC_S3_SECRET_KEY only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags.logLevel)
			cfg, err := loadConfig(flags, logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cmd.Flags().Changed("format") && opts.out != "" {
				if f, err := export.FormatForPath(opts.out); err == nil {
					opts.format = string(f)
				}
			}

			ctx := cmd.Context()
			b, err := openBackend(ctx, cfg, false, logger)
			if err != nil {
				return err
			}
			defer b.Close(context.Background())

			written, err := exportSession(ctx, b.store, cfg, opts, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", written)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.session, "session", "", "Session name or IRI (default: the only recorded session)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: turtle, ntriples, jsonld (default from config)")
	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "Ontology profile: minimal, bfo, cco (default from config)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (default: <export.dir>/<session-id><ext>)")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "Upload the export to the configured object store")
	return cmd
}

// exportSession writes the session export and returns where it went: the
// file path, followed by the object location when uploaded.
func exportSession(ctx context.Context, store sessionStore, cfg *config.Config, opts *exportOptions, logger *slog.Logger) (string, error) {
	format := export.Format(cfg.Export.Format)
	if opts.format != "" {
		format = export.Format(opts.format)
	}
	info, ok := export.GetFormatInfo(format)
	if !ok {
		return "", fmt.Errorf("unsupported format %q", format)
	}
	profile := export.Profile(cfg.Export.Profile)
	if opts.profile != "" {
		profile = export.Profile(opts.profile)
	}
	if _, ok := export.Profiles[profile]; !ok {
		return "", fmt.Errorf("unsupported profile %q", profile)
	}

	iri, err := resolveSession(ctx, store, opts.session)
	if err != nil {
		return "", err
	}
	groups, err := sessionFacts(ctx, store, iri)
	if err != nil {
		return "", fmt.Errorf("read session facts: %w", err)
	}
	if len(groups) == 0 {
		return "", fmt.Errorf("session %s has no recorded facts", iri)
	}

	exporter := export.NewExporter(profile)
	exporter.Add(groups...)
	var buf bytes.Buffer
	if err := exporter.Write(&buf, format); err != nil {
		return "", err
	}

	name := path.Base(iri) + info.Extension
	file := opts.out
	if file == "" {
		file = filepath.Join(cfg.Export.Dir, name)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(file, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	logger.Info("Exported session",
		"session", iri,
		"format", format,
		"profile", profile,
		"triples", exporter.Len(),
		"path", file)

	if !opts.upload {
		return file, nil
	}
	if !cfg.ObjectStore.Client().Enabled() {
		return "", fmt.Errorf("upload: %w", objectstore.ErrNotConfigured)
	}
	uploader, err := objectstore.NewUploader(cfg.ObjectStore.Client(), logger)
	if err != nil {
		return "", err
	}
	if err := uploader.EnsureBucket(ctx); err != nil {
		return "", err
	}
	location, err := uploader.Upload(ctx, uploader.Key(name), bytes.NewReader(buf.Bytes()), int64(buf.Len()), info.MIMEType)
	if err != nil {
		return "", err
	}
	return file + "\n" + location, nil
}

func sessionsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
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

			sessions, err := b.store.Sessions(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range sessions {
				instants, err := b.store.Instants(ctx, s)
				if err != nil {
					return err
				}
				if len(instants) == 0 {
					fmt.Fprintf(out, "%s\t0 instants\n", s)
					continue
				}
				first := instants[0].Timestamp
				span := instants[len(instants)-1].Timestamp.Sub(first)
				fmt.Fprintf(out, "%s\t%d instants\t%s\t%s\n", s, len(instants), first.Format("2006-01-02T15:04:05Z"), span)
			}
			return nil
		},
	}
}
