package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// ProgressEvent is one day-loop progress update streamed to a connected
// client during a long batch run.
type ProgressEvent struct {
	RequestID string  `json:"requestId"`
	DayIndex  int     `json:"dayIndex"`
	TotalDays int     `json:"totalDays"`
	Equity    float64 `json:"equity,omitempty"`
	Done      bool    `json:"done"`
}

// ProgressHub fans out ProgressEvents to whichever client opened a websocket
// for a given request id. Unlike the response cache, this holds no durable
// state: a dropped connection just means that viewer stopped watching.
type ProgressHub struct {
	log zerolog.Logger

	mu   sync.Mutex
	subs map[string][]chan ProgressEvent
}

// NewProgressHub builds an empty ProgressHub.
func NewProgressHub(log zerolog.Logger) *ProgressHub {
	return &ProgressHub{log: log.With().Str("component", "progress_hub").Logger(), subs: map[string][]chan ProgressEvent{}}
}

// Publish delivers an event to every subscriber of requestId, dropping it
// silently for requests nobody is watching.
func (h *ProgressHub) Publish(requestID string, ev ProgressEvent) {
	h.mu.Lock()
	chans := append([]chan ProgressEvent{}, h.subs[requestID]...)
	h.mu.Unlock()

	for _, c := range chans {
		select {
		case c <- ev:
		default:
			// slow subscriber; drop rather than block the day loop
		}
	}
}

func (h *ProgressHub) subscribe(requestID string) chan ProgressEvent {
	c := make(chan ProgressEvent, 64)
	h.mu.Lock()
	h.subs[requestID] = append(h.subs[requestID], c)
	h.mu.Unlock()
	return c
}

func (h *ProgressHub) unsubscribe(requestID string, c chan ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subs[requestID]
	for i, s := range subs {
		if s == c {
			h.subs[requestID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subs[requestID]) == 0 {
		delete(h.subs, requestID)
	}
}

// HandleWebSocket serves GET /api/backtest/progress/{requestId}, streaming
// ProgressEvents as JSON text frames until the client disconnects or the run
// completes.
func (h *ProgressHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	events := h.subscribe(requestID)
	defer h.unsubscribe(requestID, events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
			if ev.Done {
				return
			}
		}
	}
}
