package service

import (
	"context"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"weibosim/internal/queue"
	"weibosim/internal/realtime"
)

// notify publishes a view-change event. Delivery is best-effort: the
// mutation has already been persisted.
func notify(ctx context.Context, n realtime.Notifier, component string, event queue.ViewEvent) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, event); err != nil {
		log.Printf("[%s] Failed to publish %s event: err=%v", component, event.Type, err)
	}
}

func defaultRand() float64 {
	return rand.Float64()
}

func defaultNow() time.Time {
	return time.Now()
}

// floorInt is math.Floor for the small counters derived from random draws.
func floorInt(f float64) int {
	return int(math.Floor(f))
}
