package realtime

import (
	"context"
	"errors"

	"weibosim/internal/queue"
)

// Notifier receives view-change events after a mutation.
type Notifier interface {
	Notify(ctx context.Context, event queue.ViewEvent) error
}

// Fanout delivers an event to every notifier and joins their errors.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, event queue.ViewEvent) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Notifier = (*Hub)(nil)
	_ Notifier = (*queue.RedisPublisher)(nil)
	_ Notifier = Fanout(nil)
)
