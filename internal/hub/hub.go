package hub

import (
	"encoding/json"
	"sync"

	"github.com/marcwilliam910/scm/pkg/log"
)

// Hub relays chat events between live connections. Connections are grouped
// by user id: one user may hold several simultaneous connections (devices,
// tabs) and every connection in the group receives that user's events.
// Delivery is best-effort; recipients without live connections are skipped
// and catch up from persisted history.
type Hub struct {
	groups     map[string]map[*Client]struct{} // userID -> live connections
	register   chan *Client
	unregister chan *Client
	deliver    chan *delivery
	done       chan struct{}
	mu         sync.RWMutex
}

type delivery struct {
	userID  string
	payload []byte
}

// NewHub creates a hub. Call Run in its own goroutine before use.
func NewHub() *Hub {
	return &Hub{
		groups:     make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan *delivery, 256),
		done:       make(chan struct{}),
	}
}

// Run processes register/unregister/deliver events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.groups[client.UserID]; !ok {
				h.groups[client.UserID] = make(map[*Client]struct{})
			}
			h.groups[client.UserID][client] = struct{}{}
			h.mu.Unlock()
			log.L().Debug().Str(log.FieldUserID, client.UserID).Msg("connection joined delivery group")

		case client := <-h.unregister:
			h.mu.Lock()
			if group, ok := h.groups[client.UserID]; ok {
				if _, member := group[client]; member {
					delete(group, client)
					close(client.send)
					if len(group) == 0 {
						delete(h.groups, client.UserID)
					}
				}
			}
			h.mu.Unlock()
			log.L().Debug().Str(log.FieldUserID, client.UserID).Msg("connection left delivery group")

		case d := <-h.deliver:
			h.mu.RLock()
			for client := range h.groups[d.userID] {
				select {
				case client.send <- d.payload:
				default:
					// Slow consumer; drop the connection, not the hub.
					go h.Unregister(client)
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			return
		}
	}
}

// Stop terminates the Run loop.
func (h *Hub) Stop() {
	close(h.done)
}

// Register adds a connection to its user's delivery group.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a connection from its user's delivery group.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendToUser marshals the event and queues it for every live connection of
// the user. An offline user is not an error: the event is dropped.
func (h *Hub) SendToUser(userID string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.deliver <- &delivery{userID: userID, payload: payload}
	return nil
}

// ConnectionCount returns the number of live connections for a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[userID])
}
