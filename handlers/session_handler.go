package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"cloutQuestAPI/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type SessionHandler struct {
	sessionManager *services.SessionManager
}

func NewSessionHandler(sessionManager *services.SessionManager) *SessionHandler {
	return &SessionHandler{
		sessionManager: sessionManager,
	}
}

// JoinPlanner upgrades the connection and runs a live planner session on
// it. The session subscribes to the current month and the settings doc and
// pushes calendar state until the peer disconnects.
func (h *SessionHandler) JoinPlanner(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Could not upgrade connection: %v", err)
		return
	}

	h.sessionManager.Serve(conn)
}
