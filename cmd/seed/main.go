// Seed program filling a collection with a small demo library
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llehouerou/shoal/internal/collection"
	"github.com/llehouerou/shoal/internal/config"
	"github.com/llehouerou/shoal/internal/errmsg"
	"github.com/llehouerou/shoal/internal/logging"
)

type album struct {
	title       string
	albumArtist string
	year        string
	genre       string
	tracks      []track
}

type track struct {
	title  string
	artist string
	length time.Duration
}

var library = []album{
	{
		title: "MCMXC a.D.", albumArtist: "Enigma", year: "1990", genre: "New Age",
		tracks: []track{
			{"The Voice of Enigma", "Enigma", 2*time.Minute + 21*time.Second},
			{"Principles of Lust", "Enigma", 4*time.Minute + 2*time.Second},
			{"Sadeness", "Enigma", 4*time.Minute + 16*time.Second},
			{"Find Love", "Enigma", 3*time.Minute + 58*time.Second},
		},
	},
	{
		title: "Era", albumArtist: "Era", year: "1996", genre: "New Age",
		tracks: []track{
			{"Ameno", "Era", 3*time.Minute + 46*time.Second},
			{"Cathar Rhythm", "Era", 3*time.Minute + 40*time.Second},
			{"Mother", "Era", 4*time.Minute + 53*time.Second},
		},
	},
	{
		title: "Pure Moods", genre: "Ambient",
		tracks: []track{
			{"Orinoco Flow", "Enya", 4*time.Minute + 26*time.Second},
			{"Return to Innocence", "Enigma", 4*time.Minute + 15*time.Second},
			{"Tubular Bells", "Mike Oldfield", 4*time.Minute + 19*time.Second},
		},
	},
}

func main() {
	root := flag.String("root", "", "directory the demo tracks are placed under (default: first configured mount point)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Msg(errmsg.Format(errmsg.OpConfigLoad, err))
	}
	logCfg := cfg.GetLogConfig()
	logger := logging.Setup(logCfg.Level, *logCfg.Console)

	dir := *root
	if dir == "" && len(cfg.Collection.MountPoints) > 0 {
		dir = cfg.Collection.MountPoints[0]
	}
	if dir == "" {
		logger.Fatal().Msg("no --root given and no mount point configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Fatal().Msg(errmsg.FormatWith(errmsg.OpSeed, dir, err))
	}

	path, err := cfg.DatabasePath()
	if err != nil {
		logger.Fatal().Msg(errmsg.Format(errmsg.OpCollectionOpen, err))
	}
	ctx := context.Background()
	c, err := collection.Open(ctx, collection.Options{
		Path:        path,
		MountPoints: append(cfg.Collection.MountPoints, dir),
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Msg(errmsg.FormatWith(errmsg.OpCollectionOpen, path, err))
	}
	defer c.Close()

	w := c.Writer()
	added := 0
	for _, a := range library {
		for i, t := range a.tracks {
			info := collection.TrackInfo{
				Path:        filepath.Join(dir, a.title, t.title+".flac"),
				Title:       t.title,
				Artist:      t.artist,
				Album:       a.title,
				AlbumArtist: a.albumArtist,
				Genre:       a.genre,
				Year:        a.year,
				TrackNumber: i + 1,
				Length:      t.length,
			}
			if _, err := w.AddTrack(ctx, info); err != nil {
				logger.Error().Err(err).Str("title", t.title).Msg("add failed")
				continue
			}
			added++
		}
	}

	logger.Info().
		Int("tracks", added).
		Str("collection", c.ID()).
		Str("root", dir).
		Msg("demo library seeded")
}
