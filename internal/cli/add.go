package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/llehouerou/shoal/internal/collection"
	"github.com/llehouerou/shoal/internal/errmsg"
)

func newAddCmd(a *app) *cobra.Command {
	var info collection.TrackInfo
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Add a track to the collection",
		Long: `Add a track with the given tags. Adding a path that is already in
the collection replaces its tags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return failWith(errmsg.OpTrackAdd, args[0], err)
			}
			if info.Title == "" {
				return failWith(errmsg.OpTrackAdd, path, errors.New("--title is required"))
			}
			info.Path = path

			c, err := a.openCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			id, err := c.Writer().AddTrack(cmd.Context(), info)
			if err != nil {
				return failWith(errmsg.OpTrackAdd, path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added track %d: %s\n", id, info.Title)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&info.Title, "title", "t", "", "track title")
	f.StringVarP(&info.Artist, "artist", "a", "", "track artist")
	f.StringVar(&info.Album, "album", "", "album name")
	f.StringVar(&info.AlbumArtist, "album-artist", "", "album artist (empty for compilations)")
	f.StringVar(&info.Genre, "genre", "", "genre")
	f.StringVar(&info.Composer, "composer", "", "composer")
	f.StringVar(&info.Year, "year", "", "release year")
	f.StringVar(&info.Comment, "comment", "", "comment")
	f.IntVar(&info.TrackNumber, "track", 0, "track number")
	f.IntVar(&info.DiscNumber, "disc", 0, "disc number")
	f.DurationVar(&info.Length, "length", 0, "track length (e.g. 4m16s)")
	f.IntVar(&info.Bitrate, "bitrate", 0, "bitrate in kbps")
	f.IntVar(&info.SampleRate, "samplerate", 0, "sample rate in Hz")
	f.Int64Var(&info.FileSize, "filesize", 0, "file size in bytes")
	f.Float64Var(&info.BPM, "bpm", 0, "beats per minute")
	return cmd
}
