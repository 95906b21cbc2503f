package app

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/five82/agentlog/internal/api"
	"github.com/five82/agentlog/internal/logtail"
)

func startServe(t *testing.T, demoInterval time.Duration) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- Serve(ctx, ServeOptions{
			ConfigPath:   filepath.Join(dir, "config.toml"),
			DBPath:       filepath.Join(dir, "data", "logs.db"),
			Demo:         true,
			DemoInterval: demoInterval,
			Listener:     ln,
			Logger:       zaptest.NewLogger(t),
		})
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errc:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("serve did not stop")
		}
	})
	return ln.Addr().String()
}

func waitForBacklog(t *testing.T, addr string) {
	t.Helper()
	client, err := api.NewClient(addr)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		entries, err := client.FetchLogs(context.Background(), 50)
		return err == nil && len(entries) >= 10
	}, 5*time.Second, 20*time.Millisecond)
}

func TestServeAndTail(t *testing.T) {
	for _, transport := range []string{"sse", "websocket"} {
		t.Run(transport, func(t *testing.T) {
			addr := startServe(t, 50*time.Millisecond)
			waitForBacklog(t, addr)

			savePath := filepath.Join(t.TempDir(), "saved.jsonl")
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			out := &syncBuffer{}
			errc := make(chan error, 1)
			go func() {
				errc <- Tail(ctx, Options{
					ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
					ServerURL:  addr,
					Transport:  transport,
					SavePath:   savePath,
					Logger:     zaptest.NewLogger(t),
				}, out)
			}()

			require.Eventually(t, func() bool {
				return strings.Contains(out.String(), "Added 3 new leads to queue")
			}, 5*time.Second, 20*time.Millisecond)
			cancel()
			require.NoError(t, <-errc)

			require.Contains(t, out.String(), "SYSTEM  Agent initialized and ready")

			saved, _, err := logtail.ReadEntries(savePath, 0)
			require.NoError(t, err)
			require.NotEmpty(t, saved)
			for i := 1; i < len(saved); i++ {
				require.Greater(t, saved[i].Seq, saved[i-1].Seq, "entries must arrive once, in seq order")
			}
		})
	}
}

func TestServeCreatesArchiveDir(t *testing.T) {
	addr := startServe(t, time.Hour)
	waitForBacklog(t, addr)
}
