package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"k8s.io/klog/v2"
)

const (
	sendQueueSize = 64
	writeTimeout  = 5 * time.Second
)

// client is one websocket with its outbound queue. A single writer goroutine
// owns the socket for writes.
type client struct {
	id   string
	conn *websocket.Conn
	send chan ServerMessage
	done chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// ConnectionManager tracks open sockets and implements Notifier.
type ConnectionManager struct {
	clients map[string]*client // connectionID → client
	mu      sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[string]*client),
	}
}

// AddConnection registers conn and starts its writer. The writer stops when
// ctx ends or the connection is removed.
func (cm *ConnectionManager) AddConnection(ctx context.Context, id string, conn *websocket.Conn) {
	c := &client{
		id:   id,
		conn: conn,
		send: make(chan ServerMessage, sendQueueSize),
		done: make(chan struct{}),
	}

	cm.mu.Lock()
	if old, ok := cm.clients[id]; ok {
		old.stop()
	}
	cm.clients[id] = c
	cm.mu.Unlock()

	go c.writeLoop(ctx)
}

// writeLoop drains the queue. Once it returns, Send reports the client as gone.
func (c *client) writeLoop(ctx context.Context) {
	defer c.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case msg := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, msg)
			cancel()
			if err != nil {
				klog.V(1).Infof("Connection %s: write %s failed: %v", c.id, msg.Type, err)
				return
			}
		}
	}
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	c, ok := cm.clients[id]
	delete(cm.clients, id)
	cm.mu.Unlock()
	if ok {
		c.stop()
	}
}

// GetConnection returns the socket for connectionID, or nil.
func (cm *ConnectionManager) GetConnection(id string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if c, ok := cm.clients[id]; ok {
		return c.conn
	}
	return nil
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// Send queues n for one connection. It never blocks; when the queue is full
// the message is dropped.
func (cm *ConnectionManager) Send(id string, n Notification) bool {
	cm.mu.RLock()
	c, ok := cm.clients[id]
	cm.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	msg := newServerMessage(n)
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		klog.Warningf("Connection %s: send queue full, dropping %s", id, msg.Type)
		return false
	}
}

func (cm *ConnectionManager) Notify(participantID string, n Notification) {
	cm.Send(participantID, n)
}

func (cm *ConnectionManager) NotifyAll(n Notification) {
	cm.mu.RLock()
	ids := make([]string, 0, len(cm.clients))
	for id := range cm.clients {
		ids = append(ids, id)
	}
	cm.mu.RUnlock()

	for _, id := range ids {
		cm.Send(id, n)
	}
}

// CloseAll closes every socket with status and reason.
func (cm *ConnectionManager) CloseAll(status websocket.StatusCode, reason string) {
	cm.mu.Lock()
	clients := cm.clients
	cm.clients = make(map[string]*client)
	cm.mu.Unlock()

	for _, c := range clients {
		c.stop()
		c.conn.Close(status, reason)
	}
}
