package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var listCmd = &cobra.Command{
	Use:     "list [query]",
	Aliases: []string{"ls"},
	Short:   "List the songs in the library",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadCLI()
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			a.player.SetQuery(args[0])
		}
		// The paginated view is for the player; the listing shows every match
		for a.player.LoadMore() {
		}
		songs := a.player.View().Visible
		if len(songs) == 0 {
			fmt.Println("No songs found")
			return nil
		}

		states := a.store.SongStates()
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"ID", "Name", "Artist", "Length", "Size", "Plays", "Last played", "Loop"})
		for _, song := range songs {
			st := states[song.CacheKey]
			length := "-"
			if song.Duration > 0 {
				length = song.FormattedDuration()
			}
			lastPlayed := "never"
			if !st.LastPlayed.IsZero() {
				lastPlayed = humanize.Time(st.LastPlayed)
			}
			t.AppendRow(table.Row{
				shortID(song.ID),
				song.Name,
				song.Artist,
				length,
				fileSize(song.VideoPath),
				st.PlayCount,
				lastPlayed,
				lo.Ternary(song.Loop, "yes", ""),
			})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 4, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight},
			{Number: 6, Align: text.AlignRight},
		})
		if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
			t.SetAllowedRowLength(width)
		}
		t.Render()
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <video>",
	Short: "Add a video to the library",
	Long:  "Add a video to the library. Files outside the library's songs directory are copied in,\nand the thumbnail and audio track are derived before the song is saved.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		artist, _ := cmd.Flags().GetString("artist")

		a, err := loadCLI()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		song, err := a.library.ImportOrEdit(ctx, args[0], name, artist, "")
		if err != nil {
			return err
		}
		fmt.Printf("Imported %s (%s, %s)\n", song.Title(), song.FormattedDuration(), shortID(song.ID))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id|name>",
	Aliases: []string{"rm"},
	Short:   "Remove a song from the library",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadCLI()
		if err != nil {
			return err
		}
		defer a.Close()

		song, err := findSong(a.player.Songs(), args[0])
		if err != nil {
			return err
		}
		if err := a.library.Delete(song.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", song.Title())
		return nil
	},
}

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Derive thumbnails and audio tracks for every song",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadCLI()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ffmpeg.Available(); err != nil {
			return err
		}

		start := time.Now()
		n := a.library.PrepareAll(cmd.Context())
		fmt.Printf("Prepared %s in %s\n", pluralSongs(n), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	importCmd.Flags().StringP("name", "n", "", "song name (defaults to the file name)")
	importCmd.Flags().StringP("artist", "a", "", "artist (defaults to Unknown Artist)")
}

// findSong matches an ID prefix first, then a case-insensitive name or title
func findSong(songs []*domain.Song, ref string) (*domain.Song, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", domain.ErrSongNotFound)
	}

	matches := lo.Filter(songs, func(s *domain.Song, _ int) bool {
		return strings.HasPrefix(string(s.ID), ref)
	})
	if len(matches) == 0 {
		matches = lo.Filter(songs, func(s *domain.Song, _ int) bool {
			return strings.EqualFold(s.Name, ref) || strings.EqualFold(s.Title(), ref)
		})
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q", domain.ErrSongNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		titles := lo.Map(matches, func(s *domain.Song, _ int) string {
			return shortID(s.ID) + " " + s.Title()
		})
		return nil, fmt.Errorf("%q is ambiguous:\n  %s", ref, strings.Join(titles, "\n  "))
	}
}

func shortID(id domain.SongID) string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return humanize.Bytes(uint64(info.Size()))
}

func pluralSongs(n int) string {
	if n == 1 {
		return "1 song"
	}
	return humanize.Comma(int64(n)) + " songs"
}
