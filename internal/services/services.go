package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/realtime"
)

// EventPublisher is satisfied by *realtime.Hub.
type EventPublisher interface {
	Publish(ctx context.Context, ev realtime.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, realtime.Event) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// dbError maps a gorm failure to NOT_FOUND or INTERNAL_SERVER_ERROR.
func dbError(err error, resource, operation string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.NotFound(resource)
	}
	return apierrors.Internal(operation, err)
}

// validID rejects ids that cannot be primary keys so they surface as NOT_FOUND
// instead of a uuid cast failure in Postgres.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func pagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
