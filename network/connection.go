// network/connection.go
package network

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection is the outbound/inbound handle a player is bound to. It is owned
// by the connection handler; everything else only sends through it.
type Connection interface {
	Send(v interface{}) error
	ReadCommand() (*Command, error)
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
}

type WSConnection struct {
	conn         *websocket.Conn
	sendMutex    sync.Mutex
	writeTimeout time.Duration
	heartbeat    time.Duration
}

func NewWSConnection(conn *websocket.Conn, writeTimeout time.Duration) *WSConnection {
	return &WSConnection{conn: conn, writeTimeout: writeTimeout}
}

// Send writes v as one JSON text frame. Writes are serialized and bounded
// by the write timeout so a stuck peer cannot hold up a broadcast.
func (c *WSConnection) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WSConnection) ReadCommand() (*Command, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, &MalformedError{Err: err}
	}
	return &cmd, nil
}

// SetHeartbeat arms a read deadline of twice the interval, refreshed by
// every message and every pong.
func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(interval * 2))
	})
}

// Ping sends a control ping; used by the server heartbeat loop.
func (c *WSConnection) Ping() error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// MalformedError reports a frame that is not a valid command envelope.
// The connection itself is still usable.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string { return "malformed command: " + e.Err.Error() }

func (e *MalformedError) Unwrap() error { return e.Err }
