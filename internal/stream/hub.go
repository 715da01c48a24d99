// Package stream pushes controller output to browser clients over WebSocket.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"stockscreener/internal/aggregate"
	"stockscreener/internal/chart"
	"stockscreener/internal/market"
)

// Event is one server-to-client message.
type Event struct {
	Type      string             `json:"type"`
	Result    *chart.Result      `json:"result,omitempty"`
	Summary   *aggregate.Summary `json:"summary,omitempty"`
	Message   string             `json:"message,omitempty"`
	Symbols   []market.Symbol    `json:"symbols,omitempty"`
	Timeframe *market.Timeframe  `json:"timeframe,omitempty"`
}

// ClientMessage is one client-to-server message.
//
//	{"type":"search","text":"AAP"}
//	{"type":"select","symbol":"AAPL","name":"APPLE INC"}
//	{"type":"open"}
//	{"type":"timeframe","value":"1W"}
type ClientMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Commands receives client input. session.Controller implements it.
type Commands interface {
	TextChanged(text string)
	SelectSymbol(sym market.Symbol)
	OpenChart(ctx context.Context)
	ChangeTimeframe(ctx context.Context, tf market.Timeframe)
}

// Hub fans events out to every connected client. All writes happen on the
// Run goroutine.
type Hub struct {
	Commands Commands

	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run serves register/unregister/broadcast until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for c := range h.clients {
				_ = c.Close()
				delete(h.clients, c)
			}
			h.mutex.Unlock()
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mutex.Unlock()
			log.Printf("ws client connected (%d)", n)

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			h.mutex.RLock()
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mutex.RUnlock()

			for _, c := range clients {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Printf("ws write: %v", err)
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *websocket.Conn) {
	h.mutex.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mutex.Unlock()
	if ok {
		_ = c.Close()
		log.Printf("ws client disconnected (%d)", n)
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and reads client messages until the
// connection closes.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return
	}
	ctx := r.Context()

	select {
	case h.register <- conn:
	case <-ctx.Done():
		_ = conn.Close()
		return
	}
	defer func() {
		select {
		case h.unregister <- conn:
		case <-ctx.Done():
			_ = conn.Close()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read: %v", err)
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("ws message: %v", err)
			continue
		}
		h.dispatch(ctx, msg)
	}
}

func (h *Hub) dispatch(ctx context.Context, msg ClientMessage) {
	if h.Commands == nil {
		return
	}
	switch msg.Type {
	case "search":
		h.Commands.TextChanged(msg.Text)
	case "select":
		h.Commands.SelectSymbol(market.Symbol{Ticker: msg.Symbol, Name: msg.Name})
		h.Commands.OpenChart(ctx)
	case "open":
		h.Commands.OpenChart(ctx)
	case "timeframe":
		tf, err := market.ParseTimeframe(msg.Value)
		if err != nil {
			log.Printf("ws timeframe %q: %v", msg.Value, err)
			return
		}
		h.Commands.ChangeTimeframe(ctx, tf)
	default:
		log.Printf("ws message: unknown type %q", msg.Type)
	}
}

func (h *Hub) send(evt Event) {
	b, err := json.Marshal(evt)
	if err != nil {
		log.Printf("ws marshal %s: %v", evt.Type, err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		log.Printf("ws broadcast full, dropping %s", evt.Type)
	}
}

func (h *Hub) ShowSeries(res chart.Result) {
	sum := aggregate.Summarize(res.Series)
	h.send(Event{Type: "series", Result: &res, Summary: &sum})
}

func (h *Hub) ShowNoData(reason string) {
	h.send(Event{Type: "no_data", Message: reason})
}

func (h *Hub) ShowSymbols(symbols []market.Symbol) {
	if symbols == nil {
		symbols = []market.Symbol{}
	}
	h.send(Event{Type: "symbols", Symbols: symbols})
}

func (h *Hub) SelectTimeframe(tf market.Timeframe) {
	h.send(Event{Type: "timeframe", Timeframe: &tf})
}
