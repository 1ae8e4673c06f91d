package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/archiveplayer/internal/adapter/probe"
	"github.com/tejashwikalptaru/archiveplayer/internal/audiofmt"
	"github.com/tejashwikalptaru/archiveplayer/internal/logger"
	"github.com/tejashwikalptaru/archiveplayer/internal/remote"
	"github.com/tejashwikalptaru/archiveplayer/internal/timecode"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url>",
		Short: "Measure the duration of a remote audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			url := args[0]

			level, err := logger.ParseLevel(cfg.Logging.Level)
			if err != nil {
				return err
			}
			log := logger.NewLogger(logger.Config{Level: level, Format: cfg.Logging.Format})

			runCtx, stop := signalContext(cmd.Context())
			defer stop()
			probeCtx, cancel := context.WithTimeout(runCtx, cfg.ProbeTimeout())
			defer cancel()

			f, err := remote.Open(probeCtx, nil, url, remote.WithUserAgent(cfg.HTTP.UserAgent))
			if err != nil {
				return err
			}
			kind, err := audiofmt.Detect(f)
			size := f.Size()
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("identify %s: %w", url, err)
			}

			p := probe.NewHTTPProbe(log, nil, probe.Config{
				UserAgent:   cfg.HTTP.UserAgent,
				MaxDownload: cfg.MaxProbeDownload(),
			})
			duration, err := p.Probe(probeCtx, url)
			if err != nil {
				log.Debug("probe failed", slog.String("url", url), slog.Any("error", err))
				return err
			}

			rows := [][]string{
				{"URL", url},
				{"Format", kind.String()},
				{"Size", sizeText(size)},
				{"Duration", fmt.Sprintf("%s (%s)", timecode.Format(duration), duration.Round(time.Millisecond))},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func sizeText(size int64) string {
	if size < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(size))
}
