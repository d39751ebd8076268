package library

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBootstrap(t *testing.T) {
	Convey("Given a bundled install root", t, func() {
		fs := afero.NewMemMapFs()
		r := NewResolver(fs, testPaths())

		touch(fs, "/opt/reel/songs/a.mp4")
		touch(fs, "/opt/reel/songs/extra/b.mp4")
		bundled := &Document{Songs: []Entry{{Name: "A", Artist: "B", PathToVideo: "songs/a.mp4"}}}
		So(WriteDocument(fs, "/opt/reel/song_data.json", bundled), ShouldBeNil)

		Convey("Bootstrap should copy the document and media", func() {
			So(Bootstrap(fs, r, nil), ShouldBeNil)

			So(r.Exists("/data/song_data.json"), ShouldBeTrue)
			So(r.Exists("/data/songs/a.mp4"), ShouldBeTrue)
			So(r.Exists("/data/songs/extra/b.mp4"), ShouldBeTrue)

			doc, err := ReadDocument(fs, "/data/song_data.json")
			So(err, ShouldBeNil)
			So(doc.Songs[0].PathToVideo, ShouldEqual, "songs/a.mp4")
		})

		Convey("Bootstrap should not overwrite user files", func() {
			So(afero.WriteFile(fs, "/data/songs/a.mp4", []byte("mine"), 0644), ShouldBeNil)
			So(Bootstrap(fs, r, nil), ShouldBeNil)

			data, err := afero.ReadFile(fs, "/data/songs/a.mp4")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "mine")
		})

		Convey("Bootstrap should normalize absolute references into the songs directory", func() {
			touch(fs, "/data/songs/c.mp4")
			user := &Document{Songs: []Entry{
				{Name: "C", Artist: "D", PathToVideo: "/data/songs/c.mp4"},
				{Name: "E", Artist: "F", PathToVideo: "/nowhere/e.mp4"},
			}}
			So(WriteDocument(fs, "/data/song_data.json", user), ShouldBeNil)
			So(Bootstrap(fs, r, nil), ShouldBeNil)

			doc, err := ReadDocument(fs, "/data/song_data.json")
			So(err, ShouldBeNil)
			So(doc.Songs[0].PathToVideo, ShouldEqual, "songs/c.mp4")
			So(doc.Songs[1].PathToVideo, ShouldEqual, "/nowhere/e.mp4")
		})
	})
}

var errDisk = errors.New("I/O error")

// faultyFs fails reads of one file after a few bytes, and renames on request
type faultyFs struct {
	afero.Fs
	brokenRead  string
	failRenames bool
}

func (f *faultyFs) Open(name string) (afero.File, error) {
	file, err := f.Fs.Open(name)
	if err != nil || name != f.brokenRead {
		return file, err
	}
	return &shortFile{File: file, left: 3}, nil
}

func (f *faultyFs) Rename(oldname, newname string) error {
	if f.failRenames {
		return errDisk
	}
	return f.Fs.Rename(oldname, newname)
}

type shortFile struct {
	afero.File
	left int
}

func (f *shortFile) Read(p []byte) (int, error) {
	if f.left <= 0 {
		return 0, errDisk
	}
	if len(p) > f.left {
		p = p[:f.left]
	}
	n, err := f.File.Read(p)
	f.left -= n
	return n, err
}

func TestCopyFile(t *testing.T) {
	Convey("Given a source video", t, func() {
		fs := &faultyFs{Fs: afero.NewMemMapFs()}
		So(afero.WriteFile(fs, "/home/u/clip.mp4", []byte("a full video"), 0600), ShouldBeNil)

		Convey("CopyFile should copy content and mode without leftovers", func() {
			So(CopyFile(fs, "/home/u/clip.mp4", "/data/songs/clip.mp4"), ShouldBeNil)

			data, err := afero.ReadFile(fs, "/data/songs/clip.mp4")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "a full video")
			info, err := fs.Stat("/data/songs/clip.mp4")
			So(err, ShouldBeNil)
			So(info.Mode().Perm() == 0600, ShouldBeTrue)

			entries, err := afero.ReadDir(fs, "/data/songs")
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
		})

		Convey("A failed read should leave no partial copy", func() {
			fs.brokenRead = "/home/u/clip.mp4"
			err := CopyFile(fs, "/home/u/clip.mp4", "/data/songs/clip.mp4")
			So(errors.Is(err, errDisk), ShouldBeTrue)

			entries, err := afero.ReadDir(fs, "/data/songs")
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})

		Convey("A failed copy should keep the existing destination", func() {
			So(afero.WriteFile(fs, "/data/songs/clip.mp4", []byte("old"), 0644), ShouldBeNil)
			fs.failRenames = true
			So(errors.Is(CopyFile(fs, "/home/u/clip.mp4", "/data/songs/clip.mp4"), errDisk), ShouldBeTrue)

			data, err := afero.ReadFile(fs, "/data/songs/clip.mp4")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "old")
			exists, _ := afero.Exists(fs, partialPath("/data/songs/clip.mp4"))
			So(exists, ShouldBeFalse)
		})
	})
}
