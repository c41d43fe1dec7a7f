package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"catbox/catbox"
	"catbox/extract"
	"catbox/internal"
)

var (
	fetchURL   string
	fetchShort string
	addAlbum   string
)

var albumCmd = &cobra.Command{
	Use:   "album",
	Short: "Inspect and manage albums",
}

var albumFetchCmd = &cobra.Command{
	Use:   "fetch-files",
	Short: "List the files of a public album",
	Long: `List the files of a public album, newest first. No login is needed.

Examples:
  catbox album fetch-files --short abc123
  catbox album fetch-files --url https://catbox.moe/c/abc123`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoints := catbox.DefaultEndpoints()

		var album catbox.Album
		if fetchURL != "" {
			u, err := extract.ParseURL(fetchURL)
			if err != nil {
				return reportError(err)
			}
			album = catbox.NewAlbum(u)
		} else {
			var err error
			if album, err = endpoints.Normalize(fetchShort); err != nil {
				return reportError(err)
			}
		}

		client, err := newHTTPClient()
		if err != nil {
			return reportError(err)
		}

		files, err := catbox.NewResolver(endpoints, client).ListAlbumFiles(cmd.Context(), album)
		if err != nil {
			return reportError(err)
		}

		for i := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "File %d: %s\n", i+1, files[len(files)-1-i])
		}
		return nil
	},
}

var albumListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the albums owned by your account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		session, err := login(ctx, config)
		if err != nil {
			return err
		}

		albums, err := catbox.NewResolver(catbox.DefaultEndpoints(), nil).ListOwnedAlbums(ctx, session)
		if err != nil {
			return reportError(err)
		}

		for i := range albums {
			fmt.Fprintf(cmd.OutOrStdout(), "Album %d: %s\n", i+1, albums[len(albums)-1-i])
		}
		return nil
	},
}

var albumAddCmd = &cobra.Command{
	Use:   "add --album <ID> <SLUG|URL>...",
	Short: "Add uploaded files to an album",
	Long: `Add files you own to one of your albums. Files are named by slug
(abc123.png) or by their direct URL (https://files.catbox.moe/abc123.png).

Examples:
  catbox album add --album abc123 xyz789.png
  catbox album add --album https://catbox.moe/c/abc123 https://files.catbox.moe/xyz789.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		endpoints := catbox.DefaultEndpoints()

		album, err := endpoints.Normalize(addAlbum)
		if err != nil {
			return reportError(err)
		}

		slugs := make([]string, 0, len(args))
		for _, arg := range args {
			slug, err := endpoints.ExtractSlug(arg)
			if err != nil {
				return reportError(err)
			}
			slugs = append(slugs, slug)
		}

		session, err := login(ctx, config)
		if err != nil {
			return err
		}

		resolver := catbox.NewResolver(endpoints, nil)
		for _, slug := range slugs {
			if err := resolver.AddToAlbum(ctx, session, album, slug); err != nil {
				return reportError(err)
			}
			internal.LogInfo("Added %s to %s", slug, album)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: added to %s\n", slug, album)
		}
		return nil
	},
}

func init() {
	albumFetchCmd.Flags().StringVar(&fetchURL, "url", "", "Album URL")
	albumFetchCmd.Flags().StringVar(&fetchShort, "short", "", "Album short code")
	albumFetchCmd.MarkFlagsMutuallyExclusive("url", "short")
	albumFetchCmd.MarkFlagsOneRequired("url", "short")

	albumAddCmd.Flags().StringVar(&addAlbum, "album", "", "Album URL or short code")
	_ = albumAddCmd.MarkFlagRequired("album")

	albumCmd.AddCommand(albumFetchCmd, albumListCmd, albumAddCmd)
}
