package ws

import (
	"strings"
	"sync"

	"prolance_backend/internal/logger"
)

// Manager is the in-process hub. A user may hold several connections;
// each connection may additionally join project rooms. It satisfies
// fanout.Dispatcher: channels named "project-<id>" go to the room,
// anything else is treated as a user ID.
type Manager struct {
	clients    map[string]map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			if m.clients[client.UserID] == nil {
				m.clients[client.UserID] = make(map[*Client]bool)
			}
			m.clients[client.UserID][client] = true
			m.mu.Unlock()
			logger.Debug("websocket client registered", "user_id", client.UserID)

		case client := <-m.unregister:
			m.removeClient(client)
		}
	}
}

func (m *Manager) removeClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.clients[client.UserID]
	if !ok || !conns[client] {
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(m.clients, client.UserID)
	}
	for room := range client.rooms {
		if members := m.rooms[room]; members != nil {
			delete(members, client)
			if len(members) == 0 {
				delete(m.rooms, room)
			}
		}
	}
	close(client.Send)
	logger.Debug("websocket client unregistered", "user_id", client.UserID)
}

// JoinRoom subscribes a connection to a project room.
func (m *Manager) JoinRoom(client *Client, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rooms[room] == nil {
		m.rooms[room] = make(map[*Client]bool)
	}
	m.rooms[room][client] = true
	client.rooms[room] = true
}

func (m *Manager) LeaveRoom(client *Client, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(client.rooms, room)
	if members := m.rooms[room]; members != nil {
		delete(members, client)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
}

// Publish delivers an event to a project room or to all connections
// of a single user. Slow clients are dropped rather than blocked on.
func (m *Manager) Publish(channel string, event any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var targets map[*Client]bool
	if strings.HasPrefix(channel, "project-") {
		targets = m.rooms[channel]
	} else {
		targets = m.clients[channel]
	}

	for client := range targets {
		select {
		case client.Send <- event:
		default:
			go func(c *Client) { m.unregister <- c }(client)
			logger.Warn("websocket client dropped, send buffer full", "user_id", client.UserID)
		}
	}
	return nil
}

// IsAvailable reports whether the hub can deliver at all. The
// in-process hub always can; absent recipients are simply not
// connected.
// deliver sends to a single client if it is still registered. The
// registration check and the send share the lock removeClient closes
// Send under, so a concurrently dropped client is skipped instead of
// hitting a closed channel.
func (m *Manager) deliver(client *Client, event any) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if conns, ok := m.clients[client.UserID]; !ok || !conns[client] {
		return
	}

	select {
	case client.Send <- event:
	default:
		go func() { m.unregister <- client }()
		logger.Warn("websocket client dropped, send buffer full", "user_id", client.UserID)
	}
}

func (m *Manager) IsAvailable() bool { return true }

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, conns := range m.clients {
		total += len(conns)
	}
	return total
}

func (m *Manager) IsUserConnected(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID]) > 0
}
