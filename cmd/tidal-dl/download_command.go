package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/handiism/tidal-downloader/internal/app"
	"github.com/handiism/tidal-downloader/internal/download"
	"github.com/handiism/tidal-downloader/internal/quality"
)

type downloadFlags struct {
	start   int
	output  string
	quality string
	convert string
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var flags downloadFlags

	cmd := &cobra.Command{
		Use:   "download <link>...",
		Short: "Download catalog links (track, album, playlist or video)",
		Example: "  tidal-dl download https://tidal.com/browse/album/77646168\n" +
			"  tidal-dl download album/77646168 track:77646169",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]app.Target, 0, len(args))
			for _, arg := range args {
				t, err := app.ParseTarget(arg)
				if err != nil {
					return err
				}
				targets = append(targets, t)
			}
			return runDownloads(cmd, ctx, flags, targets)
		},
	}
	addDownloadFlags(cmd, &flags)

	for _, kind := range []app.Kind{app.KindTrack, app.KindAlbum, app.KindPlaylist, app.KindVideo} {
		cmd.AddCommand(newDownloadKindCommand(ctx, kind))
	}
	return cmd
}

func newDownloadKindCommand(ctx *commandContext, kind app.Kind) *cobra.Command {
	var flags downloadFlags
	cmd := &cobra.Command{
		Use:   string(kind) + " <id>...",
		Short: "Download " + string(kind) + "s by catalog ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]app.Target, len(args))
			for i, id := range args {
				targets[i] = app.Target{Kind: kind, ID: id}
			}
			return runDownloads(cmd, ctx, flags, targets)
		},
	}
	addDownloadFlags(cmd, &flags)
	return cmd
}

func addDownloadFlags(cmd *cobra.Command, flags *downloadFlags) {
	cmd.Flags().IntVar(&flags.start, "start", 1, "1-based item to start from (albums and playlists)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Download directory (overrides settings)")
	cmd.Flags().StringVarP(&flags.quality, "quality", "q", "", "Audio quality: normal, high, hifi, master or max")
	cmd.Flags().StringVar(&flags.convert, "convert", "", "Convert to alac, m4a, aac, flac, wav or mp3")
}

func runDownloads(cmd *cobra.Command, ctx *commandContext, flags downloadFlags, targets []app.Target) error {
	settings, err := ctx.ensureSettings()
	if err != nil {
		return err
	}
	if flags.output != "" {
		settings.DownloadPath = flags.output
	}
	if flags.quality != "" {
		q, err := quality.ParseSetting(flags.quality)
		if err != nil {
			return err
		}
		settings.AudioQuality = q
	}
	if flags.convert != "" {
		settings.AudioConvertFormat = flags.convert
	}

	out := cmd.OutOrStdout()
	a, err := ctx.ensureApp(out)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, titleStyle.Render("TIDAL Downloader"))
	var rows [][]string
	var failures []download.ItemError
	for _, t := range targets {
		summary, err := a.Download(cmd.Context(), t, flags.start)
		if err != nil {
			if cmd.Context().Err() != nil {
				return cmd.Context().Err()
			}
			fmt.Fprintln(out, errorStyle.Render("✗ "+err.Error()))
			rows = append(rows, []string{t.String(), "-", "-", "error"})
			continue
		}
		rows = append(rows, summaryRow(t, summary))
		failures = append(failures, summary.Failed...)
	}

	printDownloadSummary(out, rows, failures)
	if len(failures) > 0 {
		return fmt.Errorf("%d item(s) failed", len(failures))
	}
	return nil
}

func summaryRow(t app.Target, s download.Summary) []string {
	return []string{
		t.String(),
		strconv.Itoa(s.Downloaded),
		strconv.Itoa(s.Skipped),
		strconv.Itoa(len(s.Failed)),
	}
}

func printDownloadSummary(out io.Writer, rows [][]string, failures []download.ItemError) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]string{"Target", "Downloaded", "Skipped", "Failed"}, rows, 2, 3, 4))
	for _, f := range failures {
		fmt.Fprintln(out, errorStyle.Render("  "+f.Error()))
	}
}
