package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"strategy-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamedEvents is the set forwarded to websocket clients.
var streamedEvents = []events.Event{
	events.EventPriceTick,
	events.EventSignal,
	events.EventActionEmitted,
	events.EventActionRejected,
	events.EventTradeExecuted,
	events.EventPositionChange,
	events.EventCooldownStart,
	events.EventRiskAlert,
}

type wsEnvelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	done := make(chan struct{})
	outbound := make(chan wsEnvelope, 256)
	var wg sync.WaitGroup

	for _, ev := range streamedEvents {
		stream, unsub := s.Bus.Subscribe(ev, 100)
		wg.Add(1)
		go func(ev events.Event, stream <-chan any, unsub func()) {
			defer wg.Done()
			defer unsub()
			for {
				select {
				case <-done:
					return
				case msg, ok := <-stream:
					if !ok {
						return
					}
					select {
					case outbound <- wsEnvelope{Event: string(ev), Payload: msg}:
					default:
						// Slow client; drop rather than stall the bus.
					}
				}
			}
		}(ev, stream, unsub)
	}

	for env := range outbound {
		if err := conn.WriteJSON(env); err != nil {
			log.Printf("ws write error: %v", err)
			break
		}
	}
	close(done)
	wg.Wait()
}
