package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/handiism/tidal-downloader/internal/library"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the liked tracks into a flat library folder",
		Long: "Downloads liked tracks missing from the library, moves tracks that are no\n" +
			"longer liked into _Removed, upgrades copies below the configured quality and\n" +
			"renames everything to \"Title - Artist\".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			a, err := ctx.ensureApp(out)
			if err != nil {
				return err
			}
			rec, err := a.Reconciler(root)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, titleStyle.Render("Syncing liked tracks into "+rec.Root()))
			report, err := rec.Sync(cmd.Context())
			if errors.Is(err, library.ErrLocked) {
				return fmt.Errorf("%w: another sync holds %s", err, rec.Root())
			}
			if err != nil {
				return err
			}
			printSyncReport(out, report)
			if report.Failed() > 0 {
				return fmt.Errorf("%s track(s) failed, see %s", humanize.Comma(int64(report.Failed())), report.LedgerPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Library folder (defaults to liked_tracks_path)")
	return cmd
}

func printSyncReport(out io.Writer, r *library.Report) {
	n := func(v int) string { return humanize.Comma(int64(v)) }
	rows := [][]string{
		{"Local tracks", n(r.Local)},
		{"Missing", n(len(r.Plan.Missing))},
		{"Downloaded", n(r.Downloaded)},
		{"Removed", n(len(r.Plan.Removed))},
		{"Moved to " + library.RemovedDirName, n(r.Moved)},
		{"Upgrade candidates", n(len(r.Plan.Upgradable))},
		{"Upgraded", n(r.Upgraded)},
		{"No better quality", n(r.Unavailable)},
		{"Quality unknown", n(r.SkippedQuality)},
		{"Flattened", n(r.Flattened)},
		{"Renamed", n(r.Names.Renamed)},
		{"Names inferred", n(r.Names.Inferred)},
		{"Name collisions", n(r.Names.Collisions)},
		{"Names skipped", n(r.Names.Skipped)},
		{"Failed", n(r.Failed())},
	}
	fmt.Fprintln(out, renderTable([]string{"Sync " + r.RunID[:8], "Count"}, rows, 2))
	if r.LedgerPath != "" {
		fmt.Fprintln(out, warningStyle.Render("Errors written to "+r.LedgerPath))
	} else {
		fmt.Fprintln(out, successStyle.Render("✓ Library in sync"))
	}
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [dir]",
		Short: "Rewrite tags of downloaded files from current catalog data",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			a, err := ctx.ensureApp(out)
			if err != nil {
				return err
			}
			dir := a.Settings.LikedTracksPath
			if len(args) == 1 {
				dir = args[0]
			}
			report, err := a.Refresher().Refresh(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderTable([]string{"Refresh", "Count"}, [][]string{
				{"Refreshed", strconv.Itoa(report.Refreshed)},
				{"Untracked", strconv.Itoa(report.Untracked)},
				{"Failed", strconv.Itoa(report.Failed)},
			}, 2))
			return nil
		},
	}
}
