package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/entities"
)

const (
	// DefaultRenewalPeriod pre-fills the renewal form.
	DefaultRenewalPeriod = 3 * 7
	// MaxRenewalPeriod is the furthest a loan can be renewed, in days.
	MaxRenewalPeriod = 4 * 7
)

// InstanceStore is the persistence the renewal workflow needs.
type InstanceStore interface {
	GetInstance(id uuid.UUID) (*entities.BookInstance, error)
	UpdateDueBack(id uuid.UUID, dueBack time.Time) error
}

// Clock returns the current time.
type Clock func() time.Time

type Service struct {
	store InstanceStore
	now   Clock
	loc   *time.Location
}

// NewService creates a renewal service. A nil clock uses time.Now and a nil
// location uses time.Local.
func NewService(store InstanceStore, now Clock, loc *time.Location) *Service {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, now: now, loc: loc}
}

// Today is the current calendar day in the service's location.
func (s *Service) Today() time.Time {
	return entities.DateOf(s.now().In(s.loc))
}

// DefaultRenewalDate is the renewal form's initial value: three weeks out.
func DefaultRenewalDate(today time.Time) time.Time {
	return entities.DateOf(today).AddDate(0, 0, DefaultRenewalPeriod)
}

// ValidateRenewalDate checks proposed against the window [today, today+4 weeks].
func ValidateRenewalDate(proposed, today time.Time) error {
	proposed = entities.DateOf(proposed)
	today = entities.DateOf(today)

	if proposed.Before(today) {
		return &InvalidDateError{Reason: ReasonInPast}
	}
	if proposed.After(today.AddDate(0, 0, MaxRenewalPeriod)) {
		return &InvalidDateError{Reason: ReasonTooFarAhead}
	}
	return nil
}

// Lookup loads the copy to be renewed.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (*entities.BookInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	instance, err := s.store.GetInstance(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load book instance: %w", err)
	}
	return instance, nil
}

// Renew moves the copy's due date to proposed. The instance must exist and
// actor must hold the can-mark-returned permission. The date must fall
// within the renewal window. On success the due date is written once and the
// updated copy returned; on failure nothing is written.
func (s *Service) Renew(ctx context.Context, id uuid.UUID, proposed time.Time, actor *entities.User) (*entities.BookInstance, error) {
	instance, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.HasPermission(entities.PermissionCanMarkReturned) {
		return nil, ErrForbidden
	}

	proposed = entities.DateOf(proposed)
	if err := ValidateRenewalDate(proposed, s.Today()); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateDueBack(id, proposed); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to save due date: %w", err)
	}

	instance.DueBack = &proposed
	return instance, nil
}
