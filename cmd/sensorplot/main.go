package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RMahshie/sensorscope/internal/config"
)

const version = "1.0.0"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(viper.New()).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("sensorplot failed")
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "sensorplot [flags] <file.wav>",
		Short: "Reduce a sensor recording into diagnostic plots",
		Long: `sensorplot decodes a WAV recording, reduces each channel according to its
sensor class and writes one PNG per plot. The class defaults to the _th, _acc
or _eh tag in the file name.

With --export-db a 1% subsample of the recording is also written to the
class table in PostgreSQL.`,
		Version:      version,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			opts.FontSize = v.GetFloat64("PLOT_FONT_SIZE")
			opts.BestEffort = v.GetBool("BEST_EFFORT")
			opts.Fraction = v.GetFloat64("TABLE_SAMPLE_FRACTION")
			opts.Policy = v.GetString("BATCH_FAILURE_POLICY")
			opts.Workers = v.GetInt("BATCH_WORKERS")
			opts.ExportDB = v.GetString("EXPORT_DB")

			written, err := run(cmd.Context(), opts)
			for _, p := range written {
				cmd.Println(p)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Class, "class", "", "sensor class (thermocouple|th, accelerometer|acc, electromagnetic|eh, generic)")
	f.StringVarP(&opts.OutDir, "out", "o", ".", "directory for rendered plots")
	f.StringSliceVar(&opts.Channels, "channels", nil, "channel names in container order")
	f.StringVar(&opts.Start, "start", "", "timestamp of the first sample (RFC 3339 or \"2006-01-02 -- 15:04:05\")")
	f.Float64Var(&opts.Scale, "scale", 1, "multiplier from normalized samples to physical units")
	f.String("export-db", "", "PostgreSQL URL to export the subsampled table to")
	f.Bool("best-effort", false, "clamp aggregation blocks on channels shorter than one block")
	f.Float64("font-size", 16, "plot font size in points")
	f.Float64("fraction", 0.01, "share of samples kept in the exported table")
	f.String("policy", "skip", "what to do when a channel fails (skip|abort)")
	f.Int("workers", 0, "channels reduced concurrently (0 means all)")

	config.SetDefaults(v)
	_ = v.BindPFlag("EXPORT_DB", f.Lookup("export-db"))
	_ = v.BindPFlag("BEST_EFFORT", f.Lookup("best-effort"))
	_ = v.BindPFlag("PLOT_FONT_SIZE", f.Lookup("font-size"))
	_ = v.BindPFlag("TABLE_SAMPLE_FRACTION", f.Lookup("fraction"))
	_ = v.BindPFlag("BATCH_FAILURE_POLICY", f.Lookup("policy"))
	_ = v.BindPFlag("BATCH_WORKERS", f.Lookup("workers"))
	v.AutomaticEnv()

	return cmd
}
