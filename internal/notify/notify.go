// Package notify delivers engine notifications after commit. Every
// dispatcher here is fire-and-forget from the engine's side: a failed
// delivery is logged, never rolled back.
package notify

import (
	"context"
	"errors"

	"github.com/dimitrije/playdate-api/internal/models"
	log "github.com/sirupsen/logrus"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, n models.Notification) error
}

// Multi fans a notification out to several dispatchers. All of them run
// even when one fails.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes notifications to the structured log. It is the fallback when
// no transport is configured.
type Log struct{}

func (Log) Dispatch(_ context.Context, n models.Notification) error {
	log.WithFields(log.Fields{
		"kind":      n.Kind,
		"recipient": n.RecipientGuardianID,
		"subject":   n.SubjectID,
	}).Debug("notification")
	return nil
}
