package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/timecode"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var durations bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print an item's catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireItem(); err != nil {
				return err
			}

			application, err := ctx.newApplication(true)
			if err != nil {
				return err
			}
			defer func() { _ = application.Shutdown() }()

			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			catalog, err := application.LoadItem(runCtx, cfg.Source.ItemID)
			if err != nil {
				return fmt.Errorf("load item %s: %w", cfg.Source.ItemID, err)
			}
			if durations {
				waitCtx, cancel := context.WithTimeout(runCtx, cfg.ProbeTimeout())
				err := application.WaitForDurations(waitCtx)
				cancel()
				if err != nil {
					return err
				}
			}

			printCatalog(cmd.OutOrStdout(), catalog)
			return nil
		},
	}

	cmd.Flags().BoolVar(&durations, "durations", false, "Probe the audio for the duration of each disk's last track")
	return cmd
}

func printCatalog(out io.Writer, c *domain.Catalog) {
	fmt.Fprintf(out, "Item:      %s\n", c.ItemID)
	fmt.Fprintf(out, "Album:     %s\n", c.AlbumTitle)
	fmt.Fprintf(out, "Performer: %s\n", c.AlbumPerformer)
	if c.CoverURL != "" {
		fmt.Fprintf(out, "Cover:     %s\n", c.CoverURL)
	}
	if c.HasPDF() {
		fmt.Fprintf(out, "Notes:     %s\n", c.PDFURL)
	}
	rights := c.RightsStatement()
	fmt.Fprintf(out, "Rights:    %s\n", rights.Text)
	if rights.LinkURL != "" {
		fmt.Fprintf(out, "           %s\n", rights.LinkURL)
	}
	fmt.Fprintln(out)

	headers := []string{"#", "Disk", "Track", "Title", "Performer", "Start", "Duration"}
	aligns := []columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft, alignRight, alignRight}

	rows := make([][]string, 0, c.Len())
	for _, t := range c.Tracks() {
		duration := "--:--"
		if t.DurationKnown {
			duration = timecode.Format(t.Duration)
		}
		rows = append(rows, []string{
			strconv.Itoa(t.GlobalIndex + 1),
			t.DiskNum,
			strconv.Itoa(t.DiskTrackIndex + 1),
			t.Title,
			t.Performer,
			timecode.Format(t.Offset),
			duration,
		})
	}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))
}
