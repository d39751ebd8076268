package playback

import (
	"testing"

	"github.com/mmcdole/reel/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

func TestShuffleInvariant(t *testing.T) {
	Convey("Given a filtered library", t, func() {
		h := newHarness("Ant", "Bat", "Cat", "Dog", "Eel", "Fox", "Gnu")
		h.ctrl.SetQuery("a") // Ant, Bat, Cat
		filtered := map[domain.SongID]bool{"Ant": true, "Bat": true, "Cat": true}

		So(h.ctrl.StartShuffle(h.ctx), ShouldBeNil)

		Convey("The current song is not queued and nothing is duplicated", func() {
			played := map[domain.SongID]bool{}
			for {
				snap := h.ctrl.Snapshot()
				if snap.State == domain.StateStopped {
					break
				}
				current := snap.Current.ID
				So(played[current], ShouldBeFalse)

				seen := map[domain.SongID]bool{current: true}
				for _, id := range snap.Queue {
					So(seen[id], ShouldBeFalse)
					So(played[id], ShouldBeFalse)
					seen[id] = true
				}
				for id := range played {
					seen[id] = true
				}
				So(seen, ShouldResemble, filtered)

				played[current] = true
				if len(snap.Queue) == 0 {
					break
				}
				h.device.end()
			}
			So(played, ShouldResemble, filtered)
		})

		Convey("Searching should cancel the shuffle", func() {
			h.ctrl.SetQuery("")
			snap := h.ctrl.Snapshot()
			So(snap.Shuffle, ShouldBeFalse)
			So(snap.Queue, ShouldBeEmpty)
		})

		Convey("A manual play should cancel the shuffle", func() {
			So(h.ctrl.Play(h.ctx, "Ant"), ShouldBeNil)
			So(h.ctrl.Shuffling(), ShouldBeFalse)
		})

		Convey("PlayNext should take the queue head while shuffling", func() {
			head := h.ctrl.Snapshot().Queue[0]
			So(h.ctrl.PlayNext(h.ctx), ShouldBeNil)
			So(h.current(), ShouldEqual, head)
		})

		Convey("Exhausting the queue should fall back to sequential order", func() {
			for len(h.ctrl.Snapshot().Queue) > 0 {
				h.device.end()
			}
			last := h.current()
			h.device.end()

			snap := h.ctrl.Snapshot()
			So(snap.Shuffle, ShouldBeFalse)
			switch last {
			case "Cat":
				So(snap.State, ShouldEqual, domain.StateStopped)
			case "Ant":
				So(snap.Current.ID, ShouldEqual, domain.SongID("Bat"))
			case "Bat":
				So(snap.Current.ID, ShouldEqual, domain.SongID("Cat"))
			}
		})
	})

	Convey("Shuffling an empty view is a no-op", t, func() {
		h := newHarness("Ant")
		h.ctrl.SetQuery("zzz")
		So(h.ctrl.StartShuffle(h.ctx), ShouldBeNil)
		So(h.ctrl.Snapshot().State, ShouldEqual, domain.StateStopped)
		So(h.ctrl.Shuffling(), ShouldBeFalse)
	})
}
