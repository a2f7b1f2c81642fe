package stream

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const closeWait = time.Second

// WebSocket is a Conn over a gorilla/websocket connection.
type WebSocket struct {
	conn    *websocket.Conn
	closed  atomic.Bool
	writeMu sync.Mutex

	readMu  sync.Mutex
	readErr error
}

// Dial opens a WebSocket to url.
func Dial(ctx context.Context, url string, header http.Header) (*WebSocket, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return NewWebSocket(conn), nil
}

// NewWebSocket wraps an established connection.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	return &WebSocket{conn: conn}
}

// Next reads the next text or binary frame. A normal close from the peer ends
// the stream. Read failures are sticky; a cancelled ctx returns ctx.Err().
func (w *WebSocket) Next(ctx context.Context) ([]byte, error) {
	w.readMu.Lock()
	defer w.readMu.Unlock()
	if w.readErr != nil {
		return nil, w.readErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deadline, _ := ctx.Deadline()
	_ = w.conn.SetReadDeadline(deadline)
	// Cancellation without a deadline still has to unblock the read.
	stop := context.AfterFunc(ctx, func() { _ = w.conn.SetReadDeadline(time.Now()) })
	defer stop()
	_, data, err := w.conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || w.closed.Load() {
			err = ErrStreamEnded
		}
		w.readErr = err
		return nil, err
	}
	return data, nil
}

// Send writes data as one binary frame.
func (w *WebSocket) Send(ctx context.Context, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	_ = w.conn.SetWriteDeadline(deadline)
	return w.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close sends a normal close frame and closes the connection. Later calls
// are no-ops.
func (w *WebSocket) Close(ctx context.Context) error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(closeWait)
	}
	w.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	werr := w.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	w.writeMu.Unlock()
	cerr := w.conn.Close()
	if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
		return errors.Join(werr, cerr)
	}
	return cerr
}

// Closed reports whether Close has been called.
func (w *WebSocket) Closed() bool { return w.closed.Load() }

var _ Conn = (*WebSocket)(nil)
