package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/circulation"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// IndexResponse is the catalog home page.
type IndexResponse struct {
	NumBooks              int64 `json:"num_books"`
	NumInstances          int64 `json:"num_instances"`
	NumInstancesAvailable int64 `json:"num_instances_available"`
	NumAuthors            int64 `json:"num_authors"`
	NumGenres             int64 `json:"num_genres"`
	NumVisits             int   `json:"num_visits"`
}

// AuthorDetail is an author together with their books.
type AuthorDetail struct {
	*entities.Author
	Name string `json:"name"`
	URL  string `json:"url"`
}

// BookDetail is a book with its copies and how many can be borrowed now.
type BookDetail struct {
	*entities.Book
	URL          string     `json:"url"`
	DisplayGenre string     `json:"display_genre"`
	Copies       []CopyItem `json:"copies"`
	NumAvailable int        `json:"num_available"`
}

// CopyItem is one copy as shown on the public book page. Who holds it is
// left out.
type CopyItem struct {
	ID      uuid.UUID           `json:"id"`
	Imprint string              `json:"imprint"`
	Status  entities.LoanStatus `json:"status"`
	DueBack string              `json:"due_back,omitempty"`
}

func toCopyItems(instances []entities.BookInstance) []CopyItem {
	items := make([]CopyItem, 0, len(instances))
	for _, inst := range instances {
		items = append(items, CopyItem{
			ID:      inst.ID,
			Imprint: inst.Imprint,
			Status:  inst.Status,
			DueBack: entities.FormatDate(inst.DueBack),
		})
	}
	return items
}

// CatalogController serves the public, read-only catalog pages.
type CatalogController struct {
	store    CatalogReader
	stats    StatsProvider
	sessions *auth.SessionManager
	pages    config.Catalog
}

// NewCatalogController creates the controller. sessions may be nil, in
// which case visits are not counted.
func NewCatalogController(store CatalogReader, stats StatsProvider, sessions *auth.SessionManager, pages config.Catalog) *CatalogController {
	return &CatalogController{store: store, stats: stats, sessions: sessions, pages: pages}
}

// Index returns catalog-wide counts and how often this session has visited.
// GET /catalog/
func (cc *CatalogController) Index(c *gin.Context) {
	stats, err := cc.stats.Stats()
	if err != nil {
		respondInternalError(c, err, "catalog stats")
		return
	}

	visits := 0
	if cc.sessions != nil {
		visits = cc.sessions.IncrementVisits(c.Request.Context())
	}

	c.JSON(http.StatusOK, IndexResponse{
		NumBooks:              stats.Books,
		NumInstances:          stats.Instances,
		NumInstancesAvailable: stats.InstancesAvailable,
		NumAuthors:            stats.Authors,
		NumGenres:             stats.Genres,
		NumVisits:             visits,
	})
}

// ListAuthors returns one page of authors by last, then first name.
// GET /catalog/authors/
func (cc *CatalogController) ListAuthors(c *gin.Context) {
	respondPage(c, cc.pages.AuthorsPerPage, cc.store.ListAuthors, "list authors")
}

// GetAuthor returns an author and their books.
// GET /catalog/author/:id
func (cc *CatalogController) GetAuthor(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "author")
	if !ok {
		return
	}

	author, err := cc.store.GetAuthorByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "author")
			return
		}
		respondInternalError(c, err, "get author")
		return
	}

	c.JSON(http.StatusOK, AuthorDetail{Author: author, Name: author.String(), URL: author.URL()})
}

// ListBooks returns one page of books by title.
// GET /catalog/books/
func (cc *CatalogController) ListBooks(c *gin.Context) {
	respondPage(c, cc.pages.BooksPerPage, cc.store.ListBooks, "list books")
}

// GetBook returns a book with its copies and availability.
// GET /catalog/book/:id
func (cc *CatalogController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}

	book, err := cc.store.GetBookByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	copies, err := cc.store.ListInstancesForBook(book.ID)
	if err != nil {
		respondInternalError(c, err, "list book copies")
		return
	}

	c.JSON(http.StatusOK, BookDetail{
		Book:         book,
		URL:          book.URL(),
		DisplayGenre: book.DisplayGenre(),
		Copies:       toCopyItems(copies),
		NumAvailable: circulation.CountAvailable(copies),
	})
}

// ListGenres returns every genre.
// GET /catalog/genres/
func (cc *CatalogController) ListGenres(c *gin.Context) {
	genres, err := cc.store.ListGenres()
	if err != nil {
		respondInternalError(c, err, "list genres")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": genres, "help_text": entities.GenreHelpText})
}

// ListLanguages returns every language.
// GET /catalog/languages/
func (cc *CatalogController) ListLanguages(c *gin.Context) {
	languages, err := cc.store.ListLanguages()
	if err != nil {
		respondInternalError(c, err, "list languages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": languages, "help_text": entities.LanguageHelpText})
}
