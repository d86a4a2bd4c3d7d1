package main

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sensorscope/internal/dispatch"
	"github.com/RMahshie/sensorscope/internal/export"
	"github.com/RMahshie/sensorscope/internal/render"
	"github.com/RMahshie/sensorscope/internal/repository/postgres"
	"github.com/RMahshie/sensorscope/internal/source"
	"github.com/RMahshie/sensorscope/pkg/models"
)

type runOptions struct {
	Path       string
	Class      string
	OutDir     string
	Channels   []string
	Start      string
	Scale      float64
	FontSize   float64
	BestEffort bool
	Fraction   float64
	Policy     string
	Workers    int
	ExportDB   string
}

// run processes one recording and returns the paths of the plots it wrote
func run(ctx context.Context, opts runOptions) ([]string, error) {
	class := models.ClassFromName(opts.Path)
	if opts.Class != "" {
		c, err := models.ParseSensorClass(opts.Class)
		if err != nil {
			return nil, err
		}
		class = c
	}

	start, err := parseStart(opts.Start)
	if err != nil {
		return nil, err
	}

	policy, err := dispatch.ParseFailurePolicy(opts.Policy)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(opts.Path), filepath.Ext(opts.Path))
	channels, err := source.DecodeWAV(data, source.Metadata{
		Name:         name,
		Class:        class,
		StartTime:    start,
		ChannelNames: opts.Channels,
		Scale:        opts.Scale,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("file", opts.Path).Str("class", string(class)).Int("channels", len(channels)).Msg("Decoded recording")

	batch, err := dispatch.New(dispatch.Options{
		BestEffort: opts.BestEffort,
		Policy:     policy,
		Workers:    opts.Workers,
	}).ProcessBatch(ctx, channels)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	renderer := render.New(render.Style{FontSize: opts.FontSize})
	var written []string
	for _, s := range batch.Series {
		path, err := renderer.Render(s, filepath.Join(opts.OutDir, render.FileName(s)))
		if err != nil {
			log.Warn().Err(err).Str("channel", s.Channel).Str("kind", string(s.Kind)).Msg("Skipping plot")
			continue
		}
		written = append(written, path)
	}

	if opts.ExportDB != "" {
		if err := exportTable(ctx, opts.ExportDB, channels, class, opts.Fraction); err != nil {
			return written, err
		}
	}

	if len(batch.Failures) > 0 {
		return written, fmt.Errorf("%d reduction(s) failed, first: %s", len(batch.Failures), batch.Failures[0].Error)
	}
	return written, nil
}

func exportTable(ctx context.Context, dsn string, channels []models.Channel, class models.SensorClass, fraction float64) error {
	table, err := export.Subsample(channels, fraction, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	storeID := dispatch.StoreFor(class)
	if err := postgres.NewPostgresTableExporter(db).ExportTable(ctx, table, storeID); err != nil {
		return err
	}
	log.Info().Str("store", storeID).Int("rows", len(table.Rows)).Msg("Exported table")
	return nil
}

func parseStart(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, models.StartTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized start time %q", s)
}
