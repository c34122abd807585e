package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/catalog"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// AuthorForm is the author entry form as submitted or pre-filled.
type AuthorForm struct {
	FirstName   string `form:"first_name" json:"first_name"`
	LastName    string `form:"last_name" json:"last_name"`
	DateOfBirth string `form:"date_of_birth" json:"date_of_birth"`
	DateOfDeath string `form:"date_of_death" json:"date_of_death"`
}

func (f AuthorForm) input() (catalog.AuthorInput, map[string]string) {
	var dates dateFields
	in := catalog.AuthorInput{
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		DateOfBirth: dates.parse("date_of_birth", f.DateOfBirth),
		DateOfDeath: dates.parse("date_of_death", f.DateOfDeath),
	}
	return in, dates.errs
}

func authorFormFrom(a *entities.Author) AuthorForm {
	return AuthorForm{
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		DateOfBirth: formatFormDate(a.DateOfBirth),
		DateOfDeath: formatFormDate(a.DateOfDeath),
	}
}

// NewAuthorForm returns a blank author form with its initial values.
// GET /catalog/author/create/
func (lc *LifecycleController) NewAuthorForm(c *gin.Context) {
	defaults := lc.service.AuthorFormDefaults()
	c.JSON(http.StatusOK, FormResponse{Form: AuthorForm{
		DateOfDeath: formatFormDate(defaults.DateOfDeath),
	}})
}

// CreateAuthor redirects to the new author's page.
// POST /catalog/author/create/
func (lc *LifecycleController) CreateAuthor(c *gin.Context) {
	var form AuthorForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}

	in, dateErrs := form.input()
	if dateErrs != nil {
		respondFormErrors(c, form, dateErrs)
		return
	}

	author, err := lc.service.CreateAuthor(in)
	if err != nil {
		respondCatalogError(c, form, err, "create author")
		return
	}

	lc.audit(c, "create", "author", author.ID, author.String())
	redirectTo(c, author.URL())
}

// EditAuthorForm returns the author form filled with current values.
// GET /catalog/author/:id/update/
func (lc *LifecycleController) EditAuthorForm(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "author")
	if !ok {
		return
	}
	author, err := lc.store.GetAuthorByID(id)
	if err != nil {
		lookupError(c, err, "author")
		return
	}
	c.JSON(http.StatusOK, FormResponse{Form: authorFormFrom(author)})
}

// UpdateAuthor redirects to the author's page.
// POST /catalog/author/:id/update/
func (lc *LifecycleController) UpdateAuthor(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "author")
	if !ok {
		return
	}

	var form AuthorForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}

	in, dateErrs := form.input()
	if dateErrs != nil {
		respondFormErrors(c, form, dateErrs)
		return
	}

	author, err := lc.service.UpdateAuthor(id, in)
	if err != nil {
		respondCatalogError(c, form, err, "update author")
		return
	}

	lc.audit(c, "update", "author", author.ID, author.String())
	redirectTo(c, author.URL())
}

// ConfirmDeleteAuthor shows what would be deleted.
// GET /catalog/author/:id/delete/
func (lc *LifecycleController) ConfirmDeleteAuthor(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "author")
	if !ok {
		return
	}
	author, err := lc.store.GetAuthorByID(id)
	if err != nil {
		lookupError(c, err, "author")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"object":    AuthorDetail{Author: author, Name: author.String(), URL: author.URL()},
		"deletable": len(author.Books) == 0,
	})
}

// DeleteAuthor redirects to the author list. Authors with books are kept
// and answered with 409.
// POST /catalog/author/:id/delete/
func (lc *LifecycleController) DeleteAuthor(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "author")
	if !ok {
		return
	}

	author, err := lc.service.DeleteAuthor(id)
	if err != nil {
		respondCatalogError(c, nil, err, "delete author")
		return
	}

	lc.audit(c, "delete", "author", author.ID, author.String())
	redirectTo(c, "/catalog/authors/")
}
