package http

import (
	"github.com/gin-gonic/gin"
)

type categoryForm struct {
	Name string `form:"name" json:"name"`
}

// CreateGenre adds a genre and redirects to the genre list.
// POST /catalog/genre/create/
func (lc *LifecycleController) CreateGenre(c *gin.Context) {
	var form categoryForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}

	genre, err := lc.service.CreateGenre(form.Name)
	if err != nil {
		respondCatalogError(c, form, err, "create genre")
		return
	}

	lc.audit(c, "create", "genre", genre.ID, genre.Name)
	redirectTo(c, "/catalog/genres/")
}

// CreateLanguage adds a language and redirects to the language list.
// POST /catalog/language/create/
func (lc *LifecycleController) CreateLanguage(c *gin.Context) {
	var form categoryForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}

	language, err := lc.service.CreateLanguage(form.Name)
	if err != nil {
		respondCatalogError(c, form, err, "create language")
		return
	}

	lc.audit(c, "create", "language", language.ID, language.Name)
	redirectTo(c, "/catalog/languages/")
}

// DeleteGenre removes a genre, detaching it from its books.
// POST /catalog/genre/:id/delete/
func (lc *LifecycleController) DeleteGenre(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "genre")
	if !ok {
		return
	}
	if err := lc.service.DeleteGenre(id); err != nil {
		respondCatalogError(c, nil, err, "delete genre")
		return
	}

	lc.audit(c, "delete", "genre", id, "")
	redirectTo(c, "/catalog/genres/")
}

// DeleteLanguage removes a language, clearing it on its books.
// POST /catalog/language/:id/delete/
func (lc *LifecycleController) DeleteLanguage(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "language")
	if !ok {
		return
	}
	if err := lc.service.DeleteLanguage(id); err != nil {
		respondCatalogError(c, nil, err, "delete language")
		return
	}

	lc.audit(c, "delete", "language", id, "")
	redirectTo(c, "/catalog/languages/")
}
