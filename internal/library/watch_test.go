package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func received(ch <-chan struct{}, within time.Duration) (got, open bool) {
	select {
	case _, ok := <-ch:
		return ok, ok
	case <-time.After(within):
		return false, true
	}
}

func TestWatch(t *testing.T) {
	Convey("Given a watched library document", t, func() {
		dir := t.TempDir()
		file := filepath.Join(dir, "song_data.json")
		So(os.WriteFile(file, []byte(`{"songs": []}`), 0644), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		Reset(cancel)
		changes, err := Watch(ctx, file, nil)
		So(err, ShouldBeNil)

		Convey("A burst of writes should coalesce into one change", func() {
			for i := 0; i < 5; i++ {
				So(os.WriteFile(file, []byte(`{"songs": [{"name": "x"}]}`), 0644), ShouldBeNil)
			}

			got, _ := received(changes, 2*time.Second)
			So(got, ShouldBeTrue)
			got, _ = received(changes, 4*watchDebounce)
			So(got, ShouldBeFalse)
		})

		Convey("A document replaced by rename should be a change", func() {
			tmp := filepath.Join(dir, ".song_data.json.partial")
			So(os.WriteFile(tmp, []byte(`{"songs": [{"name": "y"}]}`), 0644), ShouldBeNil)
			So(os.Rename(tmp, file), ShouldBeNil)

			got, _ := received(changes, 2*time.Second)
			So(got, ShouldBeTrue)
		})

		Convey("Writes to other files should be ignored", func() {
			So(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644), ShouldBeNil)

			got, _ := received(changes, 4*watchDebounce)
			So(got, ShouldBeFalse)
		})

		Convey("Cancelling the context should close the channel", func() {
			cancel()
			_, open := received(changes, 2*time.Second)
			So(open, ShouldBeFalse)
		})

		Convey("A missing directory should fail", func() {
			_, err := Watch(ctx, filepath.Join(dir, "nope", "song_data.json"), nil)
			So(err, ShouldNotBeNil)
		})
	})
}
