package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/stream"
)

type wsSource struct {
	client    *Client
	fromStart bool
}

func (s *wsSource) Open(ctx context.Context, after logfeed.Entry) (stream.Conn, error) {
	c := s.client
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	u := *c.baseURL.ResolveReference(&url.URL{Path: wsPath})
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if after.Seq > 0 || s.fromStart {
		u.RawQuery = url.Values{"after": {strconv.FormatUint(after.Seq, 10)}}.Encode()
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: requestTimeout,
	}
	header := http.Header{}
	header.Set("User-Agent", c.userAgent)

	ws, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", wsPath, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", wsPath, err)
	}

	conn := &wsConn{ws: ws}
	// ReadMessage does not take a context; closing the socket unblocks it.
	conn.stop = context.AfterFunc(ctx, func() { _ = ws.Close() })
	return conn, nil
}

type wsConn struct {
	ws        *websocket.Conn
	stop      func() bool
	closeOnce sync.Once
}

func (c *wsConn) Next(ctx context.Context) (logfeed.Entry, error) {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return logfeed.Entry{}, ctx.Err()
			}
			return logfeed.Entry{}, fmt.Errorf("read websocket: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return decodeEntry(data)
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.stop()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}
