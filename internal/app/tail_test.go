package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/five82/agentlog/internal/logtail"
)

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func lines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func demoTailOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		ConfigPath:   filepath.Join(t.TempDir(), "config.toml"),
		Demo:         true,
		DemoInterval: time.Millisecond,
		Logger:       zaptest.NewLogger(t),
	}
}

func TestTail_WarningFilter(t *testing.T) {
	opts := demoTailOptions(t)
	opts.Filter = "warning"

	var out bytes.Buffer
	require.NoError(t, Tail(context.Background(), opts, &out))

	got := lines(out.String())
	require.Len(t, got, 1)
	require.True(t, strings.HasSuffix(got[0], `WARNING Website for "FitStudio Nashville" returned 403 error`), got[0])
}

func TestTail_SuccessFilterKeepsArrivalOrder(t *testing.T) {
	opts := demoTailOptions(t)
	opts.Filter = "success"

	var out bytes.Buffer
	require.NoError(t, Tail(context.Background(), opts, &out))

	want := []string{
		"SUCCESS Found 32 potential leads matching criteria",
		"SUCCESS Qualified 18 leads after enrichment",
		"SUCCESS Found email address with 92% confidence",
		"SUCCESS Added 3 new leads to queue",
	}
	got := lines(out.String())
	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, strings.HasSuffix(got[i], want[i]), "line %d: %q", i, got[i])
	}
}

func TestTail_SavesEveryEntry(t *testing.T) {
	opts := demoTailOptions(t)
	opts.Filter = "error"
	opts.SavePath = filepath.Join(t.TempDir(), "saved.jsonl")

	var out bytes.Buffer
	require.NoError(t, Tail(context.Background(), opts, &out))
	require.Empty(t, out.String(), "the demo script has no error entries")

	saved, skipped, err := logtail.ReadEntries(opts.SavePath, 0)
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Len(t, saved, 16)
	for i, e := range saved {
		require.EqualValues(t, i+1, e.Seq)
	}
}

func TestTail_RejectsBadFilter(t *testing.T) {
	opts := demoTailOptions(t)
	opts.Filter = "verbose"
	require.Error(t, Tail(context.Background(), opts, &bytes.Buffer{}))
}

func TestTail_StopsOnCancel(t *testing.T) {
	opts := demoTailOptions(t)
	opts.DemoInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	errc := make(chan error, 1)
	go func() { errc <- Tail(ctx, opts, out) }()

	require.Eventually(t, func() bool {
		return len(lines(out.String())) == 10
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("tail did not stop after cancel")
	}
}
