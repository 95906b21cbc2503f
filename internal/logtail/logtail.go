package logtail

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/stream"
)

const maxLineBytes = 1024 * 1024

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file is not an error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// ReadEntries loads the last maxEntries JSON lines of a JSONL archive.
// Blank lines are ignored; lines that do not decode to a valid entry are
// counted in skipped and left out.
func ReadEntries(path string, maxEntries int) (entries []logfeed.Entry, skipped int, err error) {
	lines, err := Read(path, maxEntries)
	if err != nil {
		return nil, 0, err
	}
	entries = make([]logfeed.Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := DecodeLine([]byte(line))
		if err != nil {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	return entries, skipped, nil
}

// DecodeLine parses one JSONL record. Failures wrap stream.ErrMalformed.
func DecodeLine(line []byte) (logfeed.Entry, error) {
	var entry logfeed.Entry
	if err := json.Unmarshal(bytes.TrimSpace(line), &entry); err != nil {
		return logfeed.Entry{}, fmt.Errorf("%w: %v", stream.ErrMalformed, err)
	}
	if err := entry.Validate(); err != nil {
		return logfeed.Entry{}, fmt.Errorf("%w: %v", stream.ErrMalformed, err)
	}
	return entry, nil
}

// AppendEntries writes entries to the end of a JSONL archive, creating it
// when needed.
func AppendEntries(path string, entries ...logfeed.Entry) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			_ = file.Close()
			return fmt.Errorf("encode entry %s: %w", e.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	return file.Close()
}
