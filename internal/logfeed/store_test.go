package logfeed

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func testEntry(id string, lvl Level) Entry {
	return Entry{
		ID:        id,
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Message:   "message " + id,
		Level:     lvl,
	}
}

func TestStore_ZeroValueIsEmpty(t *testing.T) {
	var s Store
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
	if _, ok := s.Last(); ok {
		t.Fatal("Last() ok = true on empty store")
	}
	if got := s.Entries(); got != nil {
		t.Fatalf("Entries = %#v, want nil", got)
	}
}

func TestStore_LoadInitialIsFullReplace(t *testing.T) {
	var s Store
	initial := []Entry{testEntry("1", LevelSystem), testEntry("2", LevelInfo)}

	s.Append(testEntry("x", LevelError))
	s.LoadInitial(initial)
	s.LoadInitial(initial)

	if diff := cmp.Diff(initial, s.Entries()); diff != "" {
		t.Fatalf("Entries mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	var s Store
	s.LoadInitial([]Entry{testEntry("1", LevelInfo)})
	s.Append(testEntry("2", LevelSuccess))
	s.Append(testEntry("3", LevelWarning))

	got := s.Entries()
	want := []string{"1", "2", "3"}
	if len(got) != len(want) {
		t.Fatalf("Len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("Entries[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
	last, ok := s.Last()
	if !ok || last.ID != "3" {
		t.Fatalf("Last = %#v, %v, want id 3", last, ok)
	}
}

func TestStore_EntriesReturnsCopy(t *testing.T) {
	var s Store
	s.Append(testEntry("1", LevelInfo))

	got := s.Entries()
	got[0].Message = "mutated"

	if again := s.Entries(); again[0].Message != "message 1" {
		t.Fatalf("Entries should clone; got %q", again[0].Message)
	}
}

func TestStore_LoadInitialCopiesInput(t *testing.T) {
	var s Store
	input := []Entry{testEntry("1", LevelInfo)}
	s.LoadInitial(input)
	input[0].ID = "changed"

	if got := s.Entries(); got[0].ID != "1" {
		t.Fatalf("LoadInitial should copy input; got %q", got[0].ID)
	}
}

func TestStore_LimitEvictsOldest(t *testing.T) {
	s := NewStore(2)
	s.Append(testEntry("1", LevelInfo))
	s.Append(testEntry("2", LevelInfo))
	s.Append(testEntry("3", LevelInfo))

	got := s.Entries()
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
		t.Fatalf("Entries = %#v, want ids [2 3]", got)
	}

	s.LoadInitial([]Entry{testEntry("a", LevelInfo), testEntry("b", LevelInfo), testEntry("c", LevelInfo)})
	got = s.Entries()
	if len(got) != 2 || got[0].ID != "b" {
		t.Fatalf("LoadInitial should trim to limit; got %#v", got)
	}
}

func TestStore_VersionBumpsOnMutation(t *testing.T) {
	var s Store
	v0 := s.Version()
	s.Append(testEntry("1", LevelInfo))
	v1 := s.Version()
	s.LoadInitial(nil)
	v2 := s.Version()
	if !(v0 < v1 && v1 < v2) {
		t.Fatalf("versions = %d, %d, %d, want strictly increasing", v0, v1, v2)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"info", LevelInfo, false},
		{" SUCCESS ", LevelSuccess, false},
		{"warn", LevelWarning, false},
		{"Warning", LevelWarning, false},
		{"err", LevelError, false},
		{"system", LevelSystem, false},
		{"debug", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownLevel) {
					t.Fatalf("ParseLevel(%q) error = %v, want ErrUnknownLevel", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseLevel(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestEntryValidate(t *testing.T) {
	good := testEntry("1", LevelInfo)
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	tests := []struct {
		name   string
		mutate func(*Entry)
	}{
		{"missing id", func(e *Entry) { e.ID = " " }},
		{"missing message", func(e *Entry) { e.Message = "" }},
		{"missing timestamp", func(e *Entry) { e.Timestamp = time.Time{} }},
		{"unknown level", func(e *Entry) { e.Level = "debug" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := good
			tt.mutate(&e)
			if err := e.Validate(); err == nil {
				t.Fatal("Validate() = nil, want error")
			}
		})
	}
}
