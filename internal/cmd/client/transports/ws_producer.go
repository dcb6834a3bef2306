package transports

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// WSProducer sends chunks over one WebSocket connection.
type WSProducer struct {
	conn   *websocket.Conn
	binary bool
}

// DialProducer opens a producer connection to base (http or ws scheme).
// With binary set, chunks go out as binary frames; otherwise as text.
func DialProducer(ctx context.Context, base string, binary bool) (*WSProducer, error) {
	u := strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u+"/ws", nil)
	if err != nil {
		return nil, err
	}
	return &WSProducer{conn: conn, binary: binary}, nil
}

func (p *WSProducer) Send(ctx context.Context, chunk []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = p.conn.SetWriteDeadline(dl)
	}
	mt := websocket.TextMessage
	if p.binary {
		mt = websocket.BinaryMessage
	}
	return p.conn.WriteMessage(mt, chunk)
}

// Close sends a normal close frame and closes the connection.
func (p *WSProducer) Close() error {
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return p.conn.Close()
}
