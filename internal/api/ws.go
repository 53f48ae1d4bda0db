package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWebSocket upgrades the request and serves one client connection
// until it disconnects: it first sends the current ShowState, then a
// reader goroutine applies inbound commands, while this goroutine fans
// ShowState snapshots and UiEvents out to the socket as they arrive on
// the bus.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("api: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Println("api: websocket client connected")

	stateSub := s.bus.SubscribeState()
	defer s.bus.UnsubscribeState(stateSub)
	eventSub := s.bus.SubscribeEvents()
	defer s.bus.UnsubscribeEvents(eventSub)

	if !s.send(conn, wireEnvelope{Type: "state", Data: showStateToWire(s.controller.State())}) {
		return
	}

	inbound := make(chan []byte, 8)
	readerDone := make(chan struct{})
	go readInbound(conn, inbound, readerDone)

	for {
		select {
		case <-readerDone:
			log.Println("api: websocket client disconnected")
			return

		case raw, ok := <-inbound:
			if !ok {
				continue
			}
			if err := dispatchInbound(raw, s.controller, s.manager); err != nil {
				log.Printf("api: websocket inbound command rejected: %v", err)
			}

		case state, ok := <-stateSub.Channel():
			if !ok {
				return
			}
			if !s.send(conn, wireEnvelope{Type: "state", Data: showStateToWire(state)}) {
				return
			}

		case e, ok := <-eventSub.Channel():
			if !ok {
				return
			}
			if !s.send(conn, wireEnvelope{Type: "event", Data: uiEventToWire(e)}) {
				return
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, env wireEnvelope) bool {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Printf("api: failed to encode %s message: %v", env.Type, err)
		return true
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("api: websocket write failed: %v", err)
		return false
	}
	return true
}

// readInbound pumps text frames off conn until it closes, handing each
// one to the caller and then signaling readerDone.
func readInbound(conn *websocket.Conn, out chan<- []byte, done chan<- struct{}) {
	defer close(done)
	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		out <- payload
	}
}
