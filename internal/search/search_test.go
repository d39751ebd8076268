package search

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMatches(t *testing.T) {
	Convey("Matches", t, func() {
		Convey("Substring mode", func() {
			So(Matches(ModeSubstring, "", "anything"), ShouldBeTrue)
			So(Matches(ModeSubstring, "low", "Slow Burn"), ShouldBeTrue)
			So(Matches(ModeSubstring, "sbn", "Slow Burn"), ShouldBeFalse)
		})
		Convey("Fuzzy mode", func() {
			So(Matches(ModeFuzzy, "sbn", "slow burn"), ShouldBeTrue)
			So(Matches(ModeFuzzy, "nbs", "slow burn"), ShouldBeFalse)
		})
	})
}

func TestFilter(t *testing.T) {
	Convey("Filter keeps input order", t, func() {
		keys := []string{"beta", "alpha", "alphabet", "gamma"}
		So(Filter(ModeSubstring, " ALPHA ", keys), ShouldResemble, []int{1, 2})
		So(Filter(ModeSubstring, "", keys), ShouldResemble, []int{0, 1, 2, 3})
		So(Filter(ModeFuzzy, "aa", keys), ShouldResemble, []int{1, 2, 3})
	})
}

func TestParseMode(t *testing.T) {
	Convey("ParseMode", t, func() {
		So(ParseMode("Fuzzy"), ShouldEqual, ModeFuzzy)
		So(ParseMode(""), ShouldEqual, ModeSubstring)
		So(ParseMode("regex"), ShouldEqual, ModeSubstring)
	})
}

func TestHighlight(t *testing.T) {
	Convey("Highlight", t, func() {
		So(Highlight(ModeSubstring, "ow", "Slow"), ShouldResemble, []int{2, 3})
		So(Highlight(ModeSubstring, "", "Slow"), ShouldBeNil)
		So(Highlight(ModeSubstring, "x", "Slow"), ShouldBeNil)
		So(Highlight(ModeFuzzy, "sw", "Slow"), ShouldResemble, []int{0, 3})
	})
}
