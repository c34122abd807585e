package http

import (
	"github.com/gin-gonic/gin"

	auditrepo "github.com/mrlokans/locallibrary/internal/database/audit"
	"github.com/mrlokans/locallibrary/internal/entities"
)

const auditPageSize = 25

// AuditController lets staff browse the audit trail.
type AuditController struct {
	log AuditLog
}

func NewAuditController(log AuditLog) *AuditController {
	return &AuditController{log: log}
}

// ListEvents returns audit events, most recent first.
// GET /catalog/audit/?type=renewal&entity_type=book&entity_id=3&page=2
func (ac *AuditController) ListEvents(c *gin.Context) {
	filter := auditrepo.EventFilter{
		EventType:  entities.AuditEventType(c.Query("type")),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
	}
	if filter.EventType != "" && !isKnownEventType(filter.EventType) {
		respondBadRequest(c, "unknown event type: "+string(filter.EventType))
		return
	}

	respondPage(c, auditPageSize, func(limit, offset int) ([]entities.AuditEvent, int64, error) {
		return ac.log.ListEvents(filter, limit, offset)
	}, "list audit events")
}

func isKnownEventType(t entities.AuditEventType) bool {
	switch t {
	case entities.AuditEventCatalog, entities.AuditEventRenewal, entities.AuditEventOverdue, entities.AuditEventAuth:
		return true
	}
	return false
}
