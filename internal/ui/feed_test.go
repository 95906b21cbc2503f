package ui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/five82/agentlog/internal/logfeed"
)

func contentLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	return strings.Join(lines, "\n")
}

func TestAutoScrollProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("enabled controller ends at the bottom after appends", prop.ForAll(
		func(initial, appends int) bool {
			vp := viewport.New(20, 5)
			a := autoScroll{enabled: true}
			vp.SetContent(contentLines(initial))
			a.apply(&vp, initial)
			for i := 1; i <= appends; i++ {
				n := initial + i
				vp.SetContent(contentLines(n))
				a.apply(&vp, n)
			}
			return vp.AtBottom()
		},
		gen.IntRange(0, 40),
		gen.IntRange(1, 40),
	))

	properties.Property("disabled controller never moves the offset", prop.ForAll(
		func(initial, offset, appends int) bool {
			vp := viewport.New(20, 5)
			vp.SetContent(contentLines(initial))
			vp.SetYOffset(offset)
			before := vp.YOffset
			a := autoScroll{enabled: false, lastLen: initial}
			for i := 1; i <= appends; i++ {
				n := initial + i
				vp.SetContent(contentLines(n))
				a.apply(&vp, n)
			}
			return vp.YOffset == before
		},
		gen.IntRange(1, 40),
		gen.IntRange(0, 40),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

func TestAutoScrollSetJumpsToBottom(t *testing.T) {
	vp := viewport.New(20, 5)
	vp.SetContent(contentLines(30))
	a := autoScroll{}
	a.apply(&vp, 30)
	if vp.YOffset != 0 {
		t.Fatalf("disabled apply moved offset to %d", vp.YOffset)
	}
	a.set(&vp, true)
	if !vp.AtBottom() {
		t.Fatal("enabling auto-scroll did not jump to the bottom")
	}
}

func TestTypewriterRevealsLatestEntry(t *testing.T) {
	first := logfeed.Entry{ID: "a", Message: "hello world", Level: logfeed.LevelInfo, Timestamp: time.Now()}
	var tw typewriter

	if !tw.track(first, true) {
		t.Fatal("track did not start a frame chain for a new entry")
	}
	if tw.track(first, true) {
		t.Fatal("track started a second chain while one is running")
	}
	frames := 0
	for tw.advance() {
		frames++
	}
	if tw.shown != len("hello world") || !tw.done() || tw.ticking {
		t.Fatalf("typewriter after chain = %+v", tw)
	}
	if frames != (len("hello world")+typeStep-1)/typeStep-1 {
		t.Fatalf("frames = %d", frames)
	}
	if tw.track(first, true) {
		t.Fatal("finished entry restarted typing")
	}

	second := logfeed.Entry{ID: "b", Message: "next", Level: logfeed.LevelInfo, Timestamp: time.Now()}
	if !tw.track(second, true) || tw.shown != 0 || tw.total != 4 {
		t.Fatalf("typewriter did not reset for a new latest entry: %+v", tw)
	}

	tw.track(logfeed.Entry{}, false)
	if tw.key != "" || !tw.done() {
		t.Fatalf("typewriter not cleared for an empty projection: %+v", tw)
	}
}
