package media

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSource struct {
	opened  []string
	handles []*fakeHandle
	openErr error
}

func (s *fakeSource) Open(path string) (domain.FrameHandle, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	h := &fakeHandle{}
	s.opened = append(s.opened, path)
	s.handles = append(s.handles, h)
	return h, nil
}

type fakeHandle struct {
	requests []time.Duration
	closed   bool
}

func (h *fakeHandle) FrameAt(at time.Duration) (image.Image, error) {
	h.requests = append(h.requests, at)
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return errors.New("already closed")
}

func TestFrameSession(t *testing.T) {
	Convey("Given a frame session", t, func() {
		src := &fakeSource{}
		session := NewFrameSession(src, nil)
		song := testSong()
		song.Duration = 10 * time.Second

		Convey("FrameAt should return nil when nothing is loaded", func() {
			So(session.FrameAt(time.Second), ShouldBeNil)
		})

		Convey("Load should be a no-op for the bound song", func() {
			So(session.Load(song), ShouldBeNil)
			So(session.Load(song), ShouldBeNil)
			So(len(src.opened), ShouldEqual, 1)
		})

		Convey("Loading another song should close the previous handle", func() {
			So(session.Load(song), ShouldBeNil)
			other := testSong()
			other.ID = "s2"
			other.VideoPath = "/data/songs/w.mp4"
			So(session.Load(other), ShouldBeNil)

			So(len(src.handles), ShouldEqual, 2)
			So(src.handles[0].closed, ShouldBeTrue)
			So(src.handles[1].closed, ShouldBeFalse)
		})

		Convey("Unload should swallow close errors and be repeatable", func() {
			So(session.Load(song), ShouldBeNil)
			session.Unload()
			session.Unload()
			_, loaded := session.Loaded()
			So(loaded, ShouldBeFalse)
			So(src.handles[0].closed, ShouldBeTrue)
		})

		Convey("FrameAt should reuse frames inside the dedup window", func() {
			So(session.Load(song), ShouldBeNil)
			first := session.FrameAt(time.Second)
			So(first, ShouldNotBeNil)
			again := session.FrameAt(time.Second + 10*time.Millisecond)
			So(again == first, ShouldBeTrue)
			So(len(src.handles[0].requests), ShouldEqual, 1)

			session.FrameAt(time.Second + 50*time.Millisecond)
			So(len(src.handles[0].requests), ShouldEqual, 2)
		})

		Convey("FrameAt should clamp into the clip", func() {
			So(session.Load(song), ShouldBeNil)
			session.FrameAt(-time.Second)
			session.FrameAt(time.Minute)
			So(src.handles[0].requests, ShouldResemble, []time.Duration{0, 10*time.Second - time.Millisecond})
		})

		Convey("A failed open should leave the session unloaded", func() {
			src.openErr = errors.New("cannot open")
			So(session.Load(song), ShouldNotBeNil)
			So(session.FrameAt(0), ShouldBeNil)
		})
	})
}
