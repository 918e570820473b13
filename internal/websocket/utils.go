package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 5 * time.Minute
)

// WriteTyped sends a typed payload with a bounded write deadline.
// Callers must serialize access to the connection themselves.
func WriteTyped(conn *websocket.Conn, payload any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(payload)
}

// WriteError sends an error event without closing the connection.
func WriteError(conn *websocket.Conn, code, message string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Code:  code,
		Error: message,
	})
}

// ReadJSON reads the next client request. The read deadline doubles as
// an idle timeout: a client that sends nothing for its duration gets
// disconnected.
func ReadJSON(conn *websocket.Conn, out *Request) error {
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return err
	}
	return conn.ReadJSON(out)
}
