package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/circulation"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// formDateLayout is how dates are shown in forms: day first.
const formDateLayout = "02/01/2006"

const renewalDateHelpText = "Enter a date between now and 4 weeks (default 3)."

// RenewForm is the state of the renewal form for one copy.
type RenewForm struct {
	InstanceID  uuid.UUID `json:"instance_id"`
	Title       string    `json:"title"`
	DueBack     string    `json:"due_back"`
	RenewalDate string    `json:"renewal_date"`
	HelpText    string    `json:"help_text"`
}

type renewRequest struct {
	RenewalDate string `form:"renewal_date" json:"renewal_date"`
}

// RenewController lets staff move a loan's due date.
type RenewController struct {
	renewals *circulation.Service
	auditor  Auditor
}

func NewRenewController(renewals *circulation.Service, auditor Auditor) *RenewController {
	if auditor == nil {
		auditor = noopAuditor{}
	}
	return &RenewController{renewals: renewals, auditor: auditor}
}

// Form returns the renewal form pre-filled with today plus three weeks.
// GET /catalog/book/:id/renew/
func (rc *RenewController) Form(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "book instance")
	if !ok {
		return
	}

	instance, err := rc.renewals.Lookup(c.Request.Context(), id)
	if err != nil {
		rc.respondError(c, err)
		return
	}

	form := newRenewForm(instance)
	form.RenewalDate = circulation.DefaultRenewalDate(rc.renewals.Today()).Format(formDateLayout)
	c.JSON(http.StatusOK, FormResponse{Form: form})
}

// Renew applies the submitted date. Success redirects to the staff loan
// list; a date outside the window re-presents the form with the reason.
// POST /catalog/book/:id/renew/
func (rc *RenewController) Renew(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "book instance")
	if !ok {
		return
	}

	var req renewRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}

	instance, err := rc.renewals.Lookup(c.Request.Context(), id)
	if err != nil {
		rc.respondError(c, err)
		return
	}
	form := newRenewForm(instance)
	form.RenewalDate = req.RenewalDate

	raw := strings.TrimSpace(req.RenewalDate)
	if raw == "" {
		respondFormErrors(c, form, map[string]string{"renewal_date": "This field is required."})
		return
	}
	proposed, err := entities.ParseDate(raw)
	if err != nil {
		respondFormErrors(c, form, map[string]string{"renewal_date": "Enter a valid date."})
		return
	}

	user := auth.CurrentUser(c)
	renewed, err := rc.renewals.Renew(c.Request.Context(), id, proposed, user)
	if err != nil {
		var invalid *circulation.InvalidDateError
		if errors.As(err, &invalid) {
			rc.auditor.LogRenewal(auth.GetUserID(c), id.String(), proposed, err)
			respondFormErrors(c, form, map[string]string{"renewal_date": invalid.Error()})
			return
		}
		rc.respondError(c, err)
		return
	}

	rc.auditor.LogRenewal(auth.GetUserID(c), renewed.ID.String(), *renewed.DueBack, nil)
	redirectTo(c, "/catalog/borrowed/")
}

func (rc *RenewController) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, circulation.ErrNotFound):
		respondNotFound(c, "book instance")
	case errors.Is(err, circulation.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "permission denied", Code: "forbidden"})
	default:
		respondInternalError(c, err, "renew book instance")
	}
}

func newRenewForm(instance *entities.BookInstance) RenewForm {
	form := RenewForm{
		InstanceID: instance.ID,
		DueBack:    entities.FormatDate(instance.DueBack),
		HelpText:   renewalDateHelpText,
	}
	if instance.Book != nil {
		form.Title = instance.Book.Title
	}
	return form
}
