package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semrec/codec"
	"github.com/c360studio/semrec/config"
	"github.com/c360studio/semrec/export"
	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/recorder"
	"github.com/c360studio/semrec/sim"
	"github.com/c360studio/semrec/storage/sqlite"
	vocab "github.com/c360studio/semrec/vocabulary/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.DiscardHandler)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestRootCommands(t *testing.T) {
	root := rootCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"record", "replay", "export", "sessions", "version"} {
		assert.True(t, names[want], want)
	}

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "semrec version "+Version)
}

func TestSessionIRI(t *testing.T) {
	assert.Equal(t, recorder.SessionIRI("demo"), sessionIRI("demo"))
	iri := recorder.SessionIRI("demo")
	assert.Equal(t, iri, sessionIRI(iri))
}

// recordDemo records a few ticks of the demo world into store.
func recordDemo(t *testing.T, sink fact.Sink, name string) *recorder.Recorder {
	t.Helper()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	registry := codec.NewRegistryWithBuiltins()
	require.NoError(t, sim.Register(registry))

	rec, err := recorder.New(sink,
		recorder.WithSessionName(name),
		recorder.WithRegistry(registry),
		recorder.WithNow(func() time.Time { return now }),
		recorder.WithLogger(quiet))
	require.NoError(t, err)
	ctx := context.Background()
	rec.Start(ctx)

	world, script := sim.Demo()
	driver := newDemoDriver(rec, world, script, quiet)
	for i := 0; i < 30; i++ {
		driver.step(100 * time.Millisecond)
		_, err := rec.Tick(ctx, world)
		require.NoError(t, err)
		now = now.Add(100 * time.Millisecond)
	}
	require.NoError(t, rec.Close(ctx))
	return rec
}

func TestDemoDriverRecordsInputs(t *testing.T) {
	sink := fact.NewMemorySink()
	rec := recordDemo(t, sink, "driver")

	var inputs int
	for _, g := range sink.Groups() {
		for _, tr := range g.Triples {
			if tr.Subject == g.Subject && tr.Predicate == vocab.Type && tr.Object == vocab.ClassInputEvent {
				inputs++
			}
		}
	}
	assert.Equal(t, 3, inputs, "every scripted input is recorded once")
	assert.Equal(t, recorder.SessionIRI("driver"), rec.Session())
}

func TestExportSession(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "semrec.db"))
	require.NoError(t, err)
	defer store.Close()
	rec := recordDemo(t, store, "export-me")

	cfg := config.DefaultConfig()
	cfg.Export.Dir = t.TempDir()
	ctx := context.Background()

	written, err := exportSession(ctx, store, cfg, &exportOptions{format: "ntriples"}, quiet)
	require.NoError(t, err)
	assert.Equal(t, ".nt", filepath.Ext(written))
	assert.True(t, strings.HasPrefix(written, cfg.Export.Dir))

	data, err := os.ReadFile(written)
	require.NoError(t, err)
	triples, err := export.ParseNTriples(bytes.NewReader(data))
	require.NoError(t, err)
	assert.NotEmpty(t, triples)

	var sawSession bool
	for _, tr := range triples {
		if tr.Subject == rec.Session() && tr.Predicate == vocab.RDFType && tr.Object == vocab.ClassSession {
			sawSession = true
		}
	}
	assert.True(t, sawSession)

	_, err = exportSession(ctx, store, cfg, &exportOptions{format: "rdfxml"}, quiet)
	assert.Error(t, err)
	_, err = exportSession(ctx, store, cfg, &exportOptions{profile: "dolce"}, quiet)
	assert.Error(t, err)
	_, err = exportSession(ctx, store, cfg, &exportOptions{session: "missing"}, quiet)
	assert.Error(t, err)
	_, err = exportSession(ctx, store, cfg, &exportOptions{upload: true}, quiet)
	assert.Error(t, err, "upload needs an object store endpoint")
}

func TestResolveSession(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "semrec.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	_, err = resolveSession(ctx, store, "")
	assert.Error(t, err, "nothing recorded")

	recordDemo(t, store, "one")
	iri, err := resolveSession(ctx, store, "")
	require.NoError(t, err)
	assert.Equal(t, recorder.SessionIRI("one"), iri)

	recordDemo(t, store, "two")
	_, err = resolveSession(ctx, store, "")
	assert.Error(t, err, "ambiguous")

	iri, err = resolveSession(ctx, store, "two")
	require.NoError(t, err)
	assert.Equal(t, recorder.SessionIRI("two"), iri)
}
