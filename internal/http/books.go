package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/catalog"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// BookForm is the book entry form. Genres arrive as a repeated "genre"
// field or a JSON array of IDs.
type BookForm struct {
	Title    string `form:"title" json:"title"`
	Author   uint   `form:"author" json:"author"`
	Summary  string `form:"summary" json:"summary"`
	ISBN     string `form:"isbn" json:"isbn"`
	Genre    []uint `form:"genre" json:"genre"`
	Language *uint  `form:"language" json:"language"`
}

func (f BookForm) input() catalog.BookInput {
	language := f.Language
	if language != nil && *language == 0 {
		language = nil
	}
	return catalog.BookInput{
		Title:      f.Title,
		AuthorID:   f.Author,
		Summary:    f.Summary,
		ISBN:       f.ISBN,
		GenreIDs:   f.Genre,
		LanguageID: language,
	}
}

func bookFormFrom(b *entities.Book) BookForm {
	genres := make([]uint, 0, len(b.Genres))
	for _, g := range b.Genres {
		genres = append(genres, g.ID)
	}
	return BookForm{
		Title:    b.Title,
		Author:   b.AuthorID,
		Summary:  b.Summary,
		ISBN:     b.ISBN,
		Genre:    genres,
		Language: b.LanguageID,
	}
}

// InstanceForm adds a copy to a book. Status takes a code ("a") or a
// name ("available"); an empty status means maintenance.
type InstanceForm struct {
	Imprint  string `form:"imprint" json:"imprint"`
	Status   string `form:"status" json:"status"`
	DueBack  string `form:"due_back" json:"due_back"`
	Borrower *uint  `form:"borrower" json:"borrower"`
}

func (f InstanceForm) input() (catalog.InstanceInput, map[string]string) {
	var dates dateFields
	in := catalog.InstanceInput{
		Imprint:    f.Imprint,
		DueBack:    dates.parse("due_back", f.DueBack),
		BorrowerID: f.Borrower,
	}
	if in.BorrowerID != nil && *in.BorrowerID == 0 {
		in.BorrowerID = nil
	}
	if f.Status != "" {
		status, err := entities.ParseLoanStatus(f.Status)
		if err != nil {
			// Passed through as is; CreateInstance rejects it on "status".
			status = entities.LoanStatus(f.Status)
		}
		in.Status = status
	}
	return in, dates.errs
}

// bookHelpText is shown next to the book form's fields.
var bookHelpText = map[string]string{
	"summary": entities.SummaryHelpText,
	"isbn":    entities.ISBNHelpText,
	"genre":   entities.BookGenreHelpText,
}

// NewBookForm returns an empty book form.
// GET /catalog/book/create/
func (lc *LifecycleController) NewBookForm(c *gin.Context) {
	c.JSON(http.StatusOK, FormResponse{Form: BookForm{Genre: []uint{}}, HelpText: bookHelpText})
}

// CreateBook redirects to the new book's page.
// POST /catalog/book/create/
func (lc *LifecycleController) CreateBook(c *gin.Context) {
	var form BookForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}

	book, err := lc.service.CreateBook(form.input())
	if err != nil {
		respondCatalogError(c, form, err, "create book")
		return
	}

	lc.audit(c, "create", "book", book.ID, book.Title)
	redirectTo(c, book.URL())
}

// EditBookForm returns the book form filled with current values.
// GET /catalog/book/:id/update/
func (lc *LifecycleController) EditBookForm(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}
	book, err := lc.store.GetBookByID(id)
	if err != nil {
		lookupError(c, err, "book")
		return
	}
	c.JSON(http.StatusOK, FormResponse{Form: bookFormFrom(book), HelpText: bookHelpText})
}

// UpdateBook redirects to the book's page.
// POST /catalog/book/:id/update/
func (lc *LifecycleController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}

	var form BookForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}

	book, err := lc.service.UpdateBook(id, form.input())
	if err != nil {
		respondCatalogError(c, form, err, "update book")
		return
	}

	lc.audit(c, "update", "book", book.ID, book.Title)
	redirectTo(c, book.URL())
}

// ConfirmDeleteBook shows the book about to be deleted.
// GET /catalog/book/:id/delete/
func (lc *LifecycleController) ConfirmDeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}
	book, err := lc.store.GetBookByID(id)
	if err != nil {
		lookupError(c, err, "book")
		return
	}
	copies, err := lc.store.ListInstancesForBook(id)
	if err != nil {
		respondInternalError(c, err, "list copies")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"object":    BookDetail{Book: book, URL: book.URL(), DisplayGenre: book.DisplayGenre(), Copies: toCopyItems(copies)},
		"deletable": len(copies) == 0,
	})
}

// DeleteBook redirects to the book list. Books that still have copies are
// answered with 409.
// POST /catalog/book/:id/delete/
func (lc *LifecycleController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}

	book, err := lc.service.DeleteBook(id)
	if err != nil {
		respondCatalogError(c, nil, err, "delete book")
		return
	}

	lc.audit(c, "delete", "book", book.ID, book.Title)
	redirectTo(c, "/catalog/books/")
}

// CreateInstance adds a copy and redirects to the book's page.
// POST /catalog/book/:id/instances/
func (lc *LifecycleController) CreateInstance(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}

	var form InstanceForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "invalid request")
		return
	}

	in, dateErrs := form.input()
	if dateErrs != nil {
		respondFormErrors(c, form, dateErrs)
		return
	}

	instance, err := lc.service.CreateInstance(bookID, in)
	if err != nil {
		respondCatalogError(c, form, err, "create book instance")
		return
	}

	lc.auditor.LogCatalogChange(auth.GetUserID(c), "create", "book_instance", instance.ID.String(), instance.String())
	redirectTo(c, instance.Book.URL())
}

// DeleteInstance removes a copy and redirects to its book.
// POST /catalog/bookinstance/:id/delete/
func (lc *LifecycleController) DeleteInstance(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "book instance")
	if !ok {
		return
	}

	instance, err := lc.service.DeleteInstance(id)
	if err != nil {
		respondCatalogError(c, nil, err, "delete book instance")
		return
	}

	lc.auditor.LogCatalogChange(auth.GetUserID(c), "delete", "book_instance", instance.ID.String(), instance.String())
	redirectTo(c, instance.Book.URL())
}
