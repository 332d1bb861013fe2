package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"weibosim/internal/queue"
)

// LocalNotifier delivers an event to presenters connected to this instance.
type LocalNotifier interface {
	Notify(ctx context.Context, event queue.ViewEvent) error
}

// Handler relays stream events to local presenters.
type Handler struct {
	local  LocalNotifier
	origin string
}

// NewHandler creates a relay handler. Events stamped with origin were already
// delivered locally when they were produced and are skipped.
func NewHandler(local LocalNotifier, origin string) *Handler {
	return &Handler{local: local, origin: origin}
}

// HandleEvent routes an event based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.ViewEvent) error {
	startTime := time.Now()

	switch event.Type {
	case queue.EventPostsChanged, queue.EventDmsChanged, queue.EventUserDmsChanged,
		queue.EventHotSearchChanged, queue.EventPlazaChanged, queue.EventProfileChanged:
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if h.origin != "" && event.Origin == h.origin {
		return nil
	}

	if err := h.local.Notify(ctx, event); err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s origin=%s duration=%v err=%v",
			event.Type, event.Origin, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s origin=%s duration=%v", event.Type, event.Origin, time.Since(startTime))
	return nil
}
