package library

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/search"
	. "github.com/smartystreets/goconvey/convey"
)

func indexSong(id, name, artist string) *domain.Song {
	song := &domain.Song{
		ID:        domain.SongID(id),
		Name:      name,
		Artist:    artist,
		VideoPath: "/data/songs/" + id + ".mp4",
	}
	SetCacheKey(song, CacheKey(artist, name, song.VideoPath), "/data/.cache")
	return song
}

func numberedSongs(n int) []*domain.Song {
	songs := make([]*domain.Song, n)
	for i := range songs {
		songs[i] = indexSong(fmt.Sprintf("s%02d", i), fmt.Sprintf("Song %02d", i), "Band")
	}
	return songs
}

func ids(songs []*domain.Song) []domain.SongID {
	out := make([]domain.SongID, len(songs))
	for i, s := range songs {
		out[i] = s.ID
	}
	return out
}

func TestIndexPagination(t *testing.T) {
	Convey("Given an index of twelve songs", t, func() {
		x := NewIndex(5, search.ModeSubstring)
		x.Reset(numberedSongs(12))

		Convey("The first page should be visible", func() {
			So(x.Limit(), ShouldEqual, 5)
			So(x.HasMore(), ShouldBeTrue)
			So(ids(x.Visible()), ShouldResemble, x.Filtered()[:5])
		})

		Convey("LoadMore should grow by one page until exhausted", func() {
			So(x.LoadMore(), ShouldBeTrue)
			So(x.Limit(), ShouldEqual, 10)
			So(x.LoadMore(), ShouldBeTrue)
			So(x.Limit(), ShouldEqual, 12)
			So(x.LoadMore(), ShouldBeFalse)
			So(x.HasMore(), ShouldBeFalse)
		})

		Convey("EnsureVisible should round up to the page boundary", func() {
			So(x.EnsureVisible("s07"), ShouldBeTrue)
			So(x.Limit(), ShouldEqual, 10)
			So(x.EnsureVisible("s11"), ShouldBeTrue)
			So(x.Limit(), ShouldEqual, 12)
			So(x.EnsureVisible("nope"), ShouldBeFalse)
		})

		Convey("SetQuery should filter in library order and reset the page", func() {
			x.LoadMore()
			x.SetQuery("  SONG 1")
			So(x.Filtered(), ShouldResemble, []domain.SongID{"s10", "s11"})
			So(x.Limit(), ShouldEqual, 2)

			x.SetQuery("")
			So(len(x.Filtered()), ShouldEqual, 12)
			So(x.Limit(), ShouldEqual, 5)
		})

		Convey("Refilter without reset should keep the page size", func() {
			x.LoadMore()
			x.Refilter(false)
			So(x.Limit(), ShouldEqual, 10)
		})
	})
}

func TestIndexInvariants(t *testing.T) {
	Convey("The visible page is a prefix of the filtered view", t, func() {
		x := NewIndex(5, search.ModeFuzzy)
		x.Reset(numberedSongs(23))

		for _, q := range []string{"", "s1", "sg0", "song 2", "zzz"} {
			x.SetQuery(q)
			for x.LoadMore() {
			}
			filtered := x.Filtered()
			visible := ids(x.Visible())
			So(len(visible), ShouldBeLessThanOrEqualTo, len(filtered))
			for i := range visible {
				So(visible[i], ShouldEqual, filtered[i])
			}

			// filtered preserves library order
			last := -1
			all := ids(x.Songs())
			for _, id := range filtered {
				pos := -1
				for i, a := range all {
					if a == id {
						pos = i
					}
				}
				So(pos, ShouldBeGreaterThan, last)
				last = pos
			}
		}
	})
}

func TestIndexMutation(t *testing.T) {
	Convey("Given an index", t, func() {
		x := NewIndex(5, search.ModeSubstring)
		x.Reset([]*domain.Song{
			indexSong("a", "Alpha", "Band"),
			indexSong("b", "Beta", "Band"),
			indexSong("c", "Gamma", "Band"),
		})

		Convey("Replace should keep identity and position", func() {
			edited := indexSong("other", "Delta", "Band")
			So(x.Replace("b", edited), ShouldBeNil)
			So(edited.ID, ShouldEqual, domain.SongID("b"))
			So(ids(x.Songs()), ShouldResemble, []domain.SongID{"a", "b", "c"})

			song, ok := x.Get("b")
			So(ok, ShouldBeTrue)
			So(song.Name, ShouldEqual, "Delta")
			So(x.Visible()[1], ShouldPointTo, edited)
		})

		Convey("Replace should fail for an unknown song", func() {
			err := x.Replace("zz", indexSong("zz", "Z", "Z"))
			So(errors.Is(err, domain.ErrSongNotFound), ShouldBeTrue)
		})

		Convey("Remove should drop the song from every view", func() {
			_, err := x.Remove("a")
			So(err, ShouldBeNil)
			So(ids(x.Songs()), ShouldResemble, []domain.SongID{"b", "c"})
			So(x.Filtered(), ShouldResemble, []domain.SongID{"b", "c"})
			So(x.FilteredPosition("a"), ShouldEqual, -1)
		})

		Convey("Add should suffix a cache key held by another video", func() {
			dup := indexSong("d", "Alpha", "Band")
			x.Add(dup)
			So(dup.CacheKey, ShouldEqual, "band-alpha-2")
			So(dup.AudioPath, ShouldEqual, "/data/.cache/band-alpha-2.ogg")

			again := indexSong("e", "Alpha", "Band")
			x.Add(again)
			So(again.CacheKey, ShouldEqual, "band-alpha-3")
		})

		Convey("Add should share the key for the same video", func() {
			same := indexSong("f", "Alpha", "Band")
			same.VideoPath = "/data/songs/a.mp4"
			x.Add(same)
			So(same.CacheKey, ShouldEqual, "band-alpha")
		})

		Convey("An unavailable song should leave the filtered view but not the library", func() {
			So(x.MarkUnavailable("b"), ShouldBeTrue)
			So(x.Unavailable("b"), ShouldBeTrue)
			So(x.Filtered(), ShouldResemble, []domain.SongID{"a", "c"})
			So(ids(x.Visible()), ShouldResemble, []domain.SongID{"a", "c"})
			So(ids(x.Songs()), ShouldResemble, []domain.SongID{"a", "b", "c"})

			x.SetQuery("beta")
			So(x.Filtered(), ShouldBeEmpty)

			Convey("until it is edited", func() {
				So(x.Replace("b", indexSong("b", "Beta", "Band")), ShouldBeNil)
				So(x.Unavailable("b"), ShouldBeFalse)
				So(x.Filtered(), ShouldResemble, []domain.SongID{"b"})
			})

			Convey("or the library is reset", func() {
				x.Reset(x.Songs())
				So(x.Unavailable("b"), ShouldBeFalse)
				So(x.Filtered(), ShouldResemble, []domain.SongID{"a", "b", "c"})
			})
		})

		Convey("MarkUnavailable should ignore an unknown song", func() {
			So(x.MarkUnavailable("zz"), ShouldBeFalse)
			So(x.Filtered(), ShouldHaveLength, 3)
		})
	})
}

func TestAssignCacheKeys(t *testing.T) {
	Convey("AssignCacheKeys should match the keys Reset assigns", t, func() {
		first := indexSong("a", "Alpha", "Band")
		second := indexSong("b", "Alpha", "Band")
		So(second.CacheKey, ShouldEqual, "band-alpha")

		AssignCacheKeys([]*domain.Song{first, second})
		So(first.CacheKey, ShouldEqual, "band-alpha")
		So(second.CacheKey, ShouldEqual, "band-alpha-2")
		So(second.ThumbnailPath, ShouldEqual, "/data/.cache/band-alpha-2.jpg")

		x := NewIndex(5, search.ModeSubstring)
		x.Reset([]*domain.Song{first, second})
		So(second.CacheKey, ShouldEqual, "band-alpha-2")
	})
}
