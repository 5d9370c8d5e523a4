package ws

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans click events out to subscribers, grouped by team ID.
type Hub struct {
	teams     map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
}

type message struct {
	teamID  string
	payload []byte
}

type subscription struct {
	teamID string
	client Subscriber
}

// NewHub creates an initialized Hub and starts its dispatch loop.
func NewHub() *Hub {
	h := &Hub{
		teams:     make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.teams[sub.teamID]; !ok {
				h.teams[sub.teamID] = make(map[Subscriber]struct{})
			}
			h.teams[sub.teamID][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.teams[sub.teamID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.teams, sub.teamID)
				}
			}
		case msg := <-h.broadcast:
			clients, ok := h.teams[msg.teamID]
			if !ok {
				continue
			}
			for c := range clients {
				if err := c.Send(msg.payload); err != nil {
					c.Close()
					delete(clients, c)
				}
			}
			if len(clients) == 0 {
				delete(h.teams, msg.teamID)
			}
		}
	}
}

// Register adds a client to a team's feed.
func (h *Hub) Register(teamID string, client Subscriber) {
	h.register <- subscription{teamID: teamID, client: client}
}

// Unregister removes a client.
func (h *Hub) Unregister(teamID string, client Subscriber) {
	h.unreg <- subscription{teamID: teamID, client: client}
}

// Broadcast sends payload to every subscriber of the team.
func (h *Hub) Broadcast(teamID string, payload []byte) {
	h.broadcast <- message{teamID: teamID, payload: payload}
}
