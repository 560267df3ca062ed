package server

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// transport abstracts request framing so the same handler loop serves raw TCP
// clients (newline-delimited lines) and WebSocket clients (one text frame per
// request).
type transport interface {
	// ReadRequest returns the next request line, without its line ending.
	// io.EOF signals an orderly disconnect.
	ReadRequest() (string, error)
	WriteLine(s string) error
	SetReadDeadline(t time.Time) error
	RemoteAddr() string
	Close() error
}

// Conn is one client connection. The name field is set once by the owning
// read loop at authorization time (the per-connection back-reference that
// replaces scanning all users on every request) and is only ever touched by
// that loop.
type Conn struct {
	ID   string
	name string // authenticated user, "" until /connect succeeds

	t       transport
	writeMu sync.Mutex // serializes outbound writes from handler and broadcasts
}

// WriteLine sends one response line to this connection. Safe for concurrent
// use; the mutex keeps broadcast fan-out from interleaving with direct
// responses.
func (c *Conn) WriteLine(s string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.t.WriteLine(s)
}

// ---------------------------------------------------------------------------
// TCP transport
// ---------------------------------------------------------------------------

// tcpTransport frames requests as newline-terminated lines with a hard size
// bound, so partial and combined socket reads are handled correctly.
type tcpTransport struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

func newTCPTransport(conn net.Conn, maxRequestBytes int) *tcpTransport {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 512), maxRequestBytes)
	return &tcpTransport{conn: conn, scanner: sc}
}

func (t *tcpTransport) ReadRequest() (string, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	// Scanner strips the trailing \r\n / \n already.
	return t.scanner.Text(), nil
}

func (t *tcpTransport) WriteLine(s string) error {
	_, err := t.conn.Write([]byte(s + "\r\n"))
	return err
}

func (t *tcpTransport) SetReadDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

// ---------------------------------------------------------------------------
// WebSocket transport
// ---------------------------------------------------------------------------

// wsTransport carries the same text protocol over WebSocket: one text frame
// per request, one text frame per response line. Frame boundaries replace the
// CRLF terminator.
type wsTransport struct {
	conn net.Conn
}

func newWSTransport(conn net.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadRequest() (string, error) {
	for {
		data, op, err := wsutil.ReadClientData(t.conn)
		if err != nil {
			return "", err
		}
		switch op {
		case ws.OpText, ws.OpBinary:
			return string(data), nil
		case ws.OpClose:
			return "", io.EOF
		default:
			// Control frames are answered inside ReadClientData; keep reading.
		}
	}
}

func (t *wsTransport) WriteLine(s string) error {
	return wsutil.WriteServerMessage(t.conn, ws.OpText, []byte(s))
}

func (t *wsTransport) SetReadDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
