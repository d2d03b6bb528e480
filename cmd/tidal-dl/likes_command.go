package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newLikesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "likes",
		Short: "Snapshot liked tracks into \"Liked Songs DD-MM-YYYY\" playlists",
	}
	cmd.AddCommand(newLikesCreateCommand(ctx))
	cmd.AddCommand(newLikesListCommand(ctx))
	cmd.AddCommand(newLikesUpdateCommand(ctx))
	return cmd
}

func newLikesCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a playlist holding every liked track",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			playlist, n, err := a.Likes().CreateFromLiked(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Created playlist '%s' with %d tracks.", playlist.Title, n)))
			return nil
		},
	}
}

func newLikesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List existing liked-songs playlists, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			candidates, err := a.Likes().Candidates(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, len(candidates))
			for i, c := range candidates {
				rows[i] = []string{strconv.Itoa(i + 1), c.Playlist.Title, c.Playlist.UUID, strconv.Itoa(c.Playlist.NumberOfTracks)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Title", "UUID", "Tracks"}, rows, 1, 4))
			return nil
		},
	}
}

func newLikesUpdateCommand(ctx *commandContext) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace a liked-songs playlist with the current liked tracks",
		Long:  "Updates the most recent liked-songs playlist, or the one at --index as shown by 'likes list'.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			service := a.Likes()
			candidates, err := service.Candidates(cmd.Context())
			if err != nil {
				return err
			}
			if index < 1 || index > len(candidates) {
				return fmt.Errorf("invalid selection %d: %d playlist(s) available", index, len(candidates))
			}
			target := candidates[index-1].Playlist
			fmt.Fprintln(cmd.OutOrStdout(), infoStyle.Render(fmt.Sprintf("› Updating playlist '%s'...", target.Title)))
			n, err := service.UpdateFromLiked(cmd.Context(), target)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Updated playlist '%s' with %d tracks.", target.Title, n)))
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", 1, "1-based position in 'likes list'")
	return cmd
}
