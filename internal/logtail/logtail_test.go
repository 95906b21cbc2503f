package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/five82/agentlog/internal/logfeed"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil || lines != nil {
		t.Fatalf("Read(missing) = %v, %v, want nil, nil", lines, err)
	}
}

func entryAt(i int, lvl logfeed.Level) logfeed.Entry {
	return logfeed.Entry{
		ID:        fmt.Sprintf("e%d", i),
		Timestamp: time.Date(2025, 3, 1, 12, i, 0, 0, time.UTC),
		Message:   fmt.Sprintf("entry %d", i),
		Level:     lvl,
		Seq:       uint64(i),
	}
}

func TestReadEntries_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	if err := AppendEntries(path, entryAt(1, logfeed.LevelInfo), entryAt(2, logfeed.LevelWarning)); err != nil {
		t.Fatalf("AppendEntries: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString("\nnot json\n{\"id\":\"x\",\"message\":\"m\",\"level\":\"verbose\",\"timestamp\":\"2025-03-01T12:00:00Z\"}\n")
	_ = f.Close()
	if err := AppendEntries(path, entryAt(3, logfeed.LevelSuccess)); err != nil {
		t.Fatalf("AppendEntries: %v", err)
	}

	entries, skipped, err := ReadEntries(path, 0)
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if skipped != 2 {
		t.Fatalf("skipped = %d, want 2", skipped)
	}
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if strings.Join(ids, ",") != "e1,e2,e3" {
		t.Fatalf("ids = %v, want e1,e2,e3", ids)
	}
	if !entries[1].Timestamp.Equal(entryAt(2, logfeed.LevelWarning).Timestamp) {
		t.Fatalf("timestamp not preserved: %v", entries[1].Timestamp)
	}

	last, _, err := ReadEntries(path, 1)
	if err != nil || len(last) != 1 || last[0].ID != "e3" {
		t.Fatalf("ReadEntries(1) = %+v, %v", last, err)
	}
}
