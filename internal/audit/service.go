package audit

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/mrlokans/locallibrary/internal/database/audit"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo     *audit.Repository
	inflight sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every pending LogAsync write has finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// LogCatalogChange records a create, update or delete of a catalog entity.
func (s *Service) LogCatalogChange(userID uint, action, entityType, entityID, description string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventCatalog,
		Action:      entityType + "_" + action,
		Description: truncate(description, 500),
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogRenewal records a renewal attempt. A non-nil err marks it failed.
func (s *Service) LogRenewal(userID uint, instanceID string, dueBack time.Time, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventRenewal,
		Action:      "renew",
		Description: "Renewal until " + dueBack.Format(entities.DateLayout),
		EntityType:  "book_instance",
		EntityID:    instanceID,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

func overdueDescription(asOf time.Time) string {
	return "Overdue loans as of " + asOf.Format(entities.DateLayout)
}

// LogOverdue records the overdue copies of one borrower, synchronously.
// The event's entity is the borrower.
func (s *Service) LogOverdue(borrowerID uint, instanceIDs []string, asOf time.Time) error {
	event := &entities.AuditEvent{
		UserID:      borrowerID,
		EventType:   entities.AuditEventOverdue,
		Action:      "overdue_notice",
		Description: overdueDescription(asOf),
		EntityType:  "user",
		EntityID:    strconv.FormatUint(uint64(borrowerID), 10),
		Status:      entities.AuditStatusSuccess,
	}

	metadata := map[string]any{
		"instances": instanceIDs,
		"count":     len(instanceIDs),
	}
	if mdBytes, e := json.Marshal(metadata); e == nil {
		event.Metadata = string(mdBytes)
	}

	return s.repo.LogEvent(event)
}

// HasOverdueNotice reports whether LogOverdue already ran for the borrower
// on the asOf day.
func (s *Service) HasOverdueNotice(borrowerID uint, asOf time.Time) (bool, error) {
	return s.repo.Exists(audit.EventFilter{
		EventType:   entities.AuditEventOverdue,
		EntityType:  "user",
		EntityID:    strconv.FormatUint(uint64(borrowerID), 10),
		Description: overdueDescription(asOf),
	})
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// ListEvents retrieves paginated audit events.
func (s *Service) ListEvents(filter audit.EventFilter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.ListEvents(filter, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
