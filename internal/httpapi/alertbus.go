package httpapi

import (
	"sync"
	"time"

	"commentwatch/internal/baseline"
	"commentwatch/internal/classifier"
)

// AlertEvent is one triggering window's alert summary, serialized to
// operator WebSocket clients over /ws/alerts.
type AlertEvent struct {
	VideoID           string             `json:"video_id"`
	WindowStart       time.Time          `json:"window_start"`
	Alerts            []classifier.Alert `json:"alerts"`
	CoordinationScore float64            `json:"coordination_score"`
	Z                 baseline.ZScores   `json:"z"`
}

// ringBuffer is a fixed-capacity circular buffer of AlertEvents, hydrating
// newly connected WebSocket clients with recent history before they start
// receiving live events, grounded on
// yoghaf-market-indikator/internal/state.RingBuffer generalized from
// market snapshots to alert events.
type ringBuffer struct {
	mu       sync.RWMutex
	data     []AlertEvent
	capacity int
	head     int
	size     int
	full     bool
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{data: make([]AlertEvent, capacity), capacity: capacity}
}

func (rb *ringBuffer) add(e AlertEvent) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.data[rb.head] = e
	rb.head = (rb.head + 1) % rb.capacity
	if !rb.full {
		rb.size++
		if rb.size == rb.capacity {
			rb.full = true
		}
	}
}

func (rb *ringBuffer) all() []AlertEvent {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.size == 0 {
		return nil
	}
	out := make([]AlertEvent, 0, rb.size)
	if !rb.full {
		out = append(out, rb.data[:rb.head]...)
	} else {
		out = append(out, rb.data[rb.head:]...)
		out = append(out, rb.data[:rb.head]...)
	}
	return out
}

// alertHub fans out AlertEvents published on Publish to every connected
// WebSocket client, grounded on
// yoghaf-market-indikator/internal/broadcast.Hub's register/unregister/
// broadcast loop. Slow clients drop a tick rather than block the hub.
type alertHub struct {
	buffer     *ringBuffer
	register   chan *wsClient
	unregister chan *wsClient
	publish    chan AlertEvent
	clients    map[*wsClient]bool
}

func newAlertHub(capacity int) *alertHub {
	return &alertHub{
		buffer:     newRingBuffer(capacity),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		publish:    make(chan AlertEvent, 64),
		clients:    make(map[*wsClient]bool),
	}
}

// Publish hands an alert event to the hub for fan-out and ring-buffer
// retention. Safe to call from any goroutine (one per video).
func (h *alertHub) Publish(e AlertEvent) {
	h.buffer.add(e)
	select {
	case h.publish <- e:
	default:
		// hub loop backed up; drop rather than block the publishing video's tick.
	}
}

func (h *alertHub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case e := <-h.publish:
			for c := range h.clients {
				select {
				case c.send <- e:
				default:
				}
			}
		}
	}
}
