package http

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/catalog"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// LifecycleController serves the staff forms that create, edit and delete
// catalog records. Every route it handles is gated on can_mark_returned.
type LifecycleController struct {
	service *catalog.Service
	store   CatalogReader
	auditor Auditor
}

func NewLifecycleController(service *catalog.Service, store CatalogReader, auditor Auditor) *LifecycleController {
	if auditor == nil {
		auditor = noopAuditor{}
	}
	return &LifecycleController{service: service, store: store, auditor: auditor}
}

func (lc *LifecycleController) audit(c *gin.Context, action, entityType string, id uint, description string) {
	lc.auditor.LogCatalogChange(auth.GetUserID(c), action, entityType, strconv.FormatUint(uint64(id), 10), description)
}

// lookupError answers a failed read of the record a form is about.
func lookupError(c *gin.Context, err error, resource string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, resource)
		return
	}
	respondInternalError(c, err, "load "+resource)
}

// dateFields parses optional form dates. Empty values stay nil; anything
// unparseable is reported against its field.
type dateFields struct {
	errs map[string]string
}

func (d *dateFields) parse(field, raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := entities.ParseDate(raw)
	if err != nil {
		if d.errs == nil {
			d.errs = make(map[string]string)
		}
		d.errs[field] = "Enter a valid date."
		return nil
	}
	return &t
}

func formatFormDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(formDateLayout)
}
