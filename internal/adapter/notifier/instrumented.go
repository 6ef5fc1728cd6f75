package notifier

import (
	"context"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

// Observer records notification outcomes.
type Observer interface {
	ObserveNotification(template string, err error)
}

// Instrumented reports every delivery attempt of the wrapped notifier.
type Instrumented struct {
	next     usecase.Notifier
	observer Observer
}

// NewInstrumented wraps next.
func NewInstrumented(next usecase.Notifier, observer Observer) *Instrumented {
	return &Instrumented{next: next, observer: observer}
}

// Notify delegates to the wrapped notifier.
func (i *Instrumented) Notify(ctx context.Context, n domain.Notification) error {
	err := i.next.Notify(ctx, n)
	i.observer.ObserveNotification(n.Template, err)
	return err
}
