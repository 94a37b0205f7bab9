package ws

import (
	"encoding/json"

	"prolance_backend/internal/logger"

	"github.com/gorilla/websocket"
)

type IncomingMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan any

	manager *Manager
	rooms   map[string]bool
}

func (c *Client) readPump() {
	defer func() {
		c.manager.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, msgBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", "user_id", c.UserID, "error", err.Error())
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			logger.Debug("unparseable websocket message", "user_id", c.UserID)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	for msg := range c.Send {
		if err := c.Conn.WriteJSON(msg); err != nil {
			logger.Debug("websocket write error", "user_id", c.UserID, "error", err.Error())
			break
		}
	}
	c.Conn.Close()
}

func (c *Client) handleMessage(msg IncomingMessage) {
	switch msg.Action {

	case "join_project":
		var payload struct {
			ProjectID string `json:"project_id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.ProjectID == "" {
			logger.Debug("invalid join_project payload", "user_id", c.UserID)
			return
		}
		c.manager.JoinRoom(c, "project-"+payload.ProjectID)

	case "leave_project":
		var payload struct {
			ProjectID string `json:"project_id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.ProjectID == "" {
			return
		}
		c.manager.LeaveRoom(c, "project-"+payload.ProjectID)

	case "ping":
		c.manager.deliver(c, map[string]string{"type": "pong"})

	default:
		logger.Debug("unhandled websocket action", "action", msg.Action)
	}
}
