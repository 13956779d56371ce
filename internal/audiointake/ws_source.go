// Package audiointake provides capture sources that feed the recorder:
// a WebSocket source streaming chunks from a browser microphone, and a
// buffer source for audio that arrives as a single upload.
package audiointake

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/coder/websocket"
)

// maxChunkBytes bounds a single WebSocket frame. Browsers emit MediaRecorder
// chunks well under this.
const maxChunkBytes = 1 << 20

// stopCommand is the text frame a client sends to finalize the capture.
const stopCommand = "stop"

// WSSource adapts an accepted WebSocket connection into a capture source.
// Binary frames are audio chunks; a text frame "stop" ends the capture.
type WSSource struct {
	conn *websocket.Conn
	ctx  context.Context

	closeOnce sync.Once
	done      chan struct{}
}

// NewWSSource wraps an already-accepted connection. The context bounds all
// reads on the connection.
func NewWSSource(ctx context.Context, conn *websocket.Conn) *WSSource {
	conn.SetReadLimit(maxChunkBytes)
	return &WSSource{
		conn: conn,
		ctx:  ctx,
		done: make(chan struct{}),
	}
}

// Start is a no-op: the device was acquired by the client before dialing.
func (s *WSSource) Start(_ context.Context) error { return nil }

// Read returns the next audio chunk. It reports io.EOF when the client sends
// the stop command, closes the connection, or Close is called locally.
func (s *WSSource) Read() ([]byte, error) {
	for {
		typ, data, err := s.conn.Read(s.ctx)
		if err != nil {
			select {
			case <-s.done:
				return nil, io.EOF
			default:
			}
			if websocket.CloseStatus(err) != -1 || s.ctx.Err() != nil {
				return nil, io.EOF
			}
			return nil, err
		}
		switch typ {
		case websocket.MessageBinary:
			return data, nil
		case websocket.MessageText:
			if strings.EqualFold(strings.TrimSpace(string(data)), stopCommand) {
				return nil, io.EOF
			}
			// Unknown text frames are ignored.
		}
	}
}

// Close ends the capture and closes the connection. Safe to call more than
// once. WSSource holds no chunks of its own: every frame is handed to the
// caller straight from Read, so Close never discards delivered audio.
func (s *WSSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close(websocket.StatusNormalClosure, "capture complete")
	})
	return err
}
