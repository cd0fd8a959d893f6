// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rtaudio/internal/log"
)

// writeWait bounds each write so a stalled client cannot hold up the others.
const writeWait = time.Second

// WebSocketTransport implements the Transport interface for WebSocket
// connections. Everything passed to Send is broadcast as JSON to every client
// connected on /ws. Text frames received from a client are decoded as a
// Command and passed to the command handler.
type WebSocketTransport struct {
	addr      string
	log       *log.Logger
	upgrader  websocket.Upgrader
	onCommand CommandHandler
	writeWait time.Duration

	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex // Guards clients and serialises writes to them.

	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
	wg        sync.WaitGroup
}

// NewWebSocketTransport creates a transport serving addr. onCommand may be
// nil, in which case client commands are answered with an error.
func NewWebSocketTransport(addr string, onCommand CommandHandler) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		log:  log.New("transport/ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local control surface, any origin.
			},
		},
		onCommand: onCommand,
		writeWait: writeWait,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		done:      make(chan struct{}),
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// Handler returns the HTTP handler serving /ws.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background.
// Listen errors are returned; serve errors after that are logged.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("websocket listen on %s: %w", wst.addr, err)
	}

	wst.server = &http.Server{Handler: wst.Handler()}
	go func() {
		wst.log.Infof("serving on ws://%s/ws", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wst.log.Errorf("server error: %v", err)
		}
	}()
	return nil
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wst.log.Warnf("upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	wst.log.Infof("client %s connected, total: %d", conn.RemoteAddr(), total)

	go wst.readCommands(conn)
}

// readCommands runs until the client goes away.
func (wst *WebSocketTransport) readCommands(conn *websocket.Conn) {
	defer wst.drop(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				wst.log.Debugf("read from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		if reply := wst.execute(data); reply != nil {
			wst.reply(conn, reply)
		}
	}
}

func (wst *WebSocketTransport) execute(data []byte) any {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return ErrorMessage{Type: TypeError, Error: fmt.Sprintf("bad command: %v", err)}
	}

	var (
		reply any
		err   error
	)
	if wst.onCommand == nil {
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	} else {
		reply, err = wst.onCommand(cmd)
	}
	if err != nil {
		wst.log.Debugf("command %+v rejected: %v", cmd, err)
		return ErrorMessage{Type: TypeError, Error: err.Error()}
	}
	return reply
}

func (wst *WebSocketTransport) reply(conn *websocket.Conn, v any) {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	if !wst.clients[conn] {
		return
	}
	if err := wst.write(conn, v); err != nil {
		wst.log.Warnf("reply to %s: %v", conn.RemoteAddr(), err)
	}
}

// write must be called with clientsMu held.
func (wst *WebSocketTransport) write(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(wst.writeWait))
	return conn.WriteJSON(v)
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	conn.Close()
	if ok {
		wst.log.Infof("client %s disconnected, total: %d", conn.RemoteAddr(), total)
	}
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := wst.write(client, data); err != nil {
					wst.log.Warnf("error sending to %s: %v", client.RemoteAddr(), err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Send queues data for broadcast. When the queue is full the data is dropped.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return errClosed
	default:
	}

	select {
	case wst.broadcast <- data:
	default:
		// Slow clients, drop.
	}
	return nil
}

var errClosed = errors.New("websocket transport closed")

// Close shuts down the server and disconnects every client.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		wst.log.Infof("closing server")
		close(wst.done)
		wst.wg.Wait()

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
