// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"amp-monitor/internal/data"
	"amp-monitor/internal/metrics"
	"amp-monitor/internal/storage"
)

// Envelope types sent to clients.
const (
	TypeSnapshot      = "snapshot"
	TypeAmplifiers    = "amplifiers"
	TypeNotifications = "notifications"
	TypeData          = "data"
)

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Snapshot is the payload sent to a client when it connects.
type Snapshot struct {
	Amplifiers    map[string]data.AmplifierData `json:"amplifiers"`
	Notifications []data.NotificationMessage    `json:"notifications"`
}

// Hub maintains the set of active clients and broadcasts messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	amps    *storage.AmplifierStore
	notes   *storage.NotificationStore
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewHub(m *metrics.Metrics, logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		metrics:    m,
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.metrics.SetWSClients(0)
			return

		case client := <-h.register:
			h.clients[client] = true
			h.metrics.SetWSClients(len(h.clients))
			h.logger.Info().Str("remote", client.remote()).Msg("websocket client registered")
			if msg := h.snapshot(); msg != nil {
				h.deliver(client, msg)
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.metrics.SetWSClients(len(h.clients))
				h.logger.Info().Str("remote", client.remote()).Msg("websocket client unregistered")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				h.deliver(client, message)
			}
		}
	}
}

// deliver queues message for client, dropping the client when its buffer
// is full. Only called from Run.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		h.logger.Warn().Str("remote", client.remote()).Msg("websocket client send buffer full, removing")
		delete(h.clients, client)
		close(client.Send)
		h.metrics.SetWSClients(len(h.clients))
	}
}

// Attach subscribes the hub to both stores. It returns a function that
// cancels the subscriptions. Call it before Run.
func (h *Hub) Attach(amps *storage.AmplifierStore, notes *storage.NotificationStore) (detach func()) {
	h.amps, h.notes = amps, notes

	// Subscribe delivers the current value immediately; connecting clients
	// get that through the snapshot instead.
	skipAmps, skipNotes := true, true
	unA := amps.Subscribe(func(m map[string]data.AmplifierData) {
		if skipAmps {
			skipAmps = false
			return
		}
		h.send(TypeAmplifiers, m)
	})
	unN := notes.Subscribe(func(list []data.NotificationMessage) {
		if skipNotes {
			skipNotes = false
			return
		}
		h.send(TypeNotifications, list)
	})
	return func() {
		unA()
		unN()
	}
}

// RegisterClient safely registers a new client to the hub
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// BroadcastData sends one reading update to all clients.
func (h *Hub) BroadcastData(ev data.DataEvent) {
	h.send(TypeData, ev)
}

func (h *Hub) send(typ string, payload any) {
	b, err := json.Marshal(envelope{Type: typ, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", typ).Msg("error marshalling broadcast")
		return
	}
	select {
	case h.broadcast <- b:
	case <-h.done:
	}
}

func (h *Hub) snapshot() []byte {
	if h.amps == nil || h.notes == nil {
		return nil
	}
	b, err := json.Marshal(envelope{Type: TypeSnapshot, Payload: Snapshot{
		Amplifiers:    h.amps.Snapshot(),
		Notifications: h.notes.List(),
	}})
	if err != nil {
		h.logger.Error().Err(err).Msg("error marshalling snapshot")
		return nil
	}
	return b
}
