package library

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	. "github.com/smartystreets/goconvey/convey"
)

func testPaths() Paths {
	return Paths{DataRoot: "/data", InstallRoot: "/opt/reel"}
}

func touch(fs afero.Fs, path string) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		panic(err)
	}
	if err := afero.WriteFile(fs, path, []byte("media"), 0644); err != nil {
		panic(err)
	}
}

func TestResolve(t *testing.T) {
	Convey("Resolve", t, func() {
		fs := afero.NewMemMapFs()
		r := NewResolver(fs, testPaths())

		Convey("Should return the songs directory for an empty reference", func() {
			So(r.Resolve(""), ShouldEqual, "/data/songs")
			So(r.Resolve("   "), ShouldEqual, "/data/songs")
		})

		Convey("Should strip a leading songs segment", func() {
			touch(fs, "/data/songs/a.mp4")
			So(r.Resolve("songs/a.mp4"), ShouldEqual, "/data/songs/a.mp4")
			So(r.Resolve("Songs/a.mp4"), ShouldEqual, "/data/songs/a.mp4")
		})

		Convey("Should prefer the songs directory for a bare name", func() {
			touch(fs, "/data/songs/a.mp4")
			touch(fs, "/opt/reel/songs/a.mp4")
			So(r.Resolve("a.mp4"), ShouldEqual, "/data/songs/a.mp4")
		})

		Convey("Should fall back to the bundled songs", func() {
			touch(fs, "/opt/reel/songs/b.mp4")
			So(r.Resolve("songs/b.mp4"), ShouldEqual, "/opt/reel/songs/b.mp4")
		})

		Convey("Should find a moved absolute reference by file name", func() {
			touch(fs, "/data/songs/c.mp4")
			So(r.Resolve("/old/machine/c.mp4"), ShouldEqual, "/data/songs/c.mp4")
		})

		Convey("Should keep an existing absolute reference", func() {
			touch(fs, "/media/d.mp4")
			So(r.Resolve("/media/d.mp4"), ShouldEqual, "/media/d.mp4")
		})

		Convey("Should return a best-effort path when nothing exists", func() {
			So(r.Resolve("x/y.mp4"), ShouldEqual, "/data/songs/y.mp4")
			So(r.Resolve("/gone/z.mp4"), ShouldEqual, "/gone/z.mp4")
			So(r.Exists(r.Resolve("x/y.mp4")), ShouldBeFalse)
		})
	})
}

func TestSerialize(t *testing.T) {
	Convey("Serialize", t, func() {
		r := NewResolver(afero.NewMemMapFs(), testPaths())

		So(r.Serialize("/data/songs/a.mp4"), ShouldEqual, "songs/a.mp4")
		So(r.Serialize("/data/songs/sub/b.mkv"), ShouldEqual, "songs/sub/b.mkv")
		So(r.Serialize("/data/songs"), ShouldEqual, "songs")
		So(r.Serialize("/media/c.mp4"), ShouldEqual, "/media/c.mp4")
		So(r.Serialize("/data/songs-extra/c.mp4"), ShouldEqual, "/data/songs-extra/c.mp4")
	})
}

func TestResolveSerializeRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewResolver(fs, testPaths())

	paths := []string{
		"/data/songs/a.mp4",
		"/data/songs/with space.mkv",
		"/data/songs/sub/b.webm",
		"/data/songs/sub/deeper/c.mov",
	}
	for _, p := range paths {
		touch(fs, p)
	}
	// Same file names under the bundled root must not win over the library
	touch(fs, "/opt/reel/songs/a.mp4")

	for _, p := range paths {
		if got := r.Resolve(r.Serialize(p)); got != p {
			t.Errorf("Resolve(Serialize(%q)) = %q", p, got)
		}
	}
}
