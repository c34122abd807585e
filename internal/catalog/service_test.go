package catalog

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	catalogdb "github.com/mrlokans/locallibrary/internal/database/catalog"
	"github.com/mrlokans/locallibrary/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *catalogdb.Repository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(
		&entities.User{},
		&entities.Author{},
		&entities.Genre{},
		&entities.Language{},
		&entities.Book{},
		&entities.BookGenre{},
		&entities.BookInstance{},
	))

	repo := catalogdb.NewRepository(db)
	svc, err := NewService(repo, "2021-11-05")
	require.NoError(t, err)
	return svc, repo
}

func mustAuthor(t *testing.T, svc *Service) *entities.Author {
	t.Helper()
	author, err := svc.CreateAuthor(AuthorInput{FirstName: "Alexandre", LastName: "Dumas"})
	require.NoError(t, err)
	return author
}

func validBook(authorID uint) BookInput {
	return BookInput{
		Title:    "The Count of Monte Cristo",
		AuthorID: authorID,
		Summary:  "A story of wrongful imprisonment and revenge.",
		ISBN:     "9780140449266",
	}
}

func TestNewService_InvalidDefaultDate(t *testing.T) {
	_, err := NewService(nil, "not a date")
	assert.Error(t, err)
}

func TestService_AuthorFormDefaults(t *testing.T) {
	svc, _ := setupTestService(t)

	form := svc.AuthorFormDefaults()
	require.NotNil(t, form.DateOfDeath)
	assert.Equal(t, "05/11/2021", form.DateOfDeath.Format("02/01/2006"))

	empty, err := NewService(nil, "")
	require.NoError(t, err)
	assert.Nil(t, empty.AuthorFormDefaults().DateOfDeath)
}

func TestService_CreateAuthor(t *testing.T) {
	svc, repo := setupTestService(t)

	born := time.Date(1802, 7, 24, 0, 0, 0, 0, time.UTC)
	author, err := svc.CreateAuthor(AuthorInput{FirstName: "  Alexandre ", LastName: "Dumas", DateOfBirth: &born})
	require.NoError(t, err)
	assert.NotZero(t, author.ID)
	assert.Equal(t, "Dumas, Alexandre", author.String())
	assert.Nil(t, author.DateOfDeath, "the form default must not leak into stored values")

	loaded, err := repo.GetAuthorByID(author.ID)
	require.NoError(t, err)
	assert.Equal(t, "1802-07-24", entities.FormatDate(loaded.DateOfBirth))
}

func TestService_CreateAuthor_Validation(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.CreateAuthor(AuthorInput{FirstName: "", LastName: strings.Repeat("x", 101)})
	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "This field is required.", verr.Fields["first_name"])
	assert.Contains(t, verr.Fields["last_name"], "at most 100 characters")
}

func TestService_UpdateAuthor(t *testing.T) {
	svc, _ := setupTestService(t)
	author := mustAuthor(t, svc)

	died := time.Date(1870, 12, 5, 0, 0, 0, 0, time.UTC)
	updated, err := svc.UpdateAuthor(author.ID, AuthorInput{FirstName: "Alexandre", LastName: "Dumas", DateOfDeath: &died})
	require.NoError(t, err)
	assert.Equal(t, "1870-12-05", entities.FormatDate(updated.DateOfDeath))

	_, err = svc.UpdateAuthor(999, AuthorInput{FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteAuthor(t *testing.T) {
	svc, _ := setupTestService(t)
	author := mustAuthor(t, svc)

	book, err := svc.CreateBook(validBook(author.ID))
	require.NoError(t, err)

	_, err = svc.DeleteAuthor(author.ID)
	assert.ErrorIs(t, err, ErrHasDependents)

	_, err = svc.DeleteBook(book.ID)
	require.NoError(t, err)

	deleted, err := svc.DeleteAuthor(author.ID)
	require.NoError(t, err)
	assert.Equal(t, author.ID, deleted.ID)

	_, err = svc.DeleteAuthor(author.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_CreateBook(t *testing.T) {
	svc, _ := setupTestService(t)
	author := mustAuthor(t, svc)

	romantic, err := svc.CreateGenre("Romantic novel")
	require.NoError(t, err)
	historical, err := svc.CreateGenre("Historical novel")
	require.NoError(t, err)
	french, err := svc.CreateLanguage("French")
	require.NoError(t, err)

	in := validBook(author.ID)
	in.GenreIDs = []uint{romantic.ID, historical.ID}
	in.LanguageID = &french.ID

	book, err := svc.CreateBook(in)
	require.NoError(t, err)
	assert.Equal(t, "Romantic novel, Historical novel", book.DisplayGenre())
	require.NotNil(t, book.Language)
	assert.Equal(t, "French", book.Language.Name)
	assert.Equal(t, "/catalog/book/1", book.URL())
}

func TestService_CreateBook_Validation(t *testing.T) {
	svc, _ := setupTestService(t)
	author := mustAuthor(t, svc)

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.CreateBook(BookInput{})
		verr, ok := AsValidationError(err)
		require.True(t, ok)
		for _, field := range []string{"title", "author", "summary", "isbn"} {
			assert.Equal(t, "This field is required.", verr.Fields[field], field)
		}
	})

	t.Run("isbn must be 13 characters", func(t *testing.T) {
		in := validBook(author.ID)
		in.ISBN = "ABCDEFG"
		_, err := svc.CreateBook(in)
		verr, ok := AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, "Ensure this value has exactly 13 characters.", verr.Fields["isbn"])
	})

	t.Run("length limits", func(t *testing.T) {
		in := validBook(author.ID)
		in.Title = strings.Repeat("t", 201)
		in.Summary = strings.Repeat("s", 1001)
		_, err := svc.CreateBook(in)
		verr, ok := AsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, verr.Fields["title"], "at most 200")
		assert.Contains(t, verr.Fields["summary"], "at most 1000")
	})

	t.Run("limits are inclusive", func(t *testing.T) {
		in := validBook(author.ID)
		in.Title = strings.Repeat("t", entities.MaxTitleLength)
		in.Summary = strings.Repeat("s", entities.MaxSummaryLength)
		in.ISBN = strings.Repeat("9", entities.ISBNLength)
		_, err := svc.CreateBook(in)
		assert.NoError(t, err)
	})

	t.Run("unknown references", func(t *testing.T) {
		missing := uint(404)
		in := validBook(999)
		in.GenreIDs = []uint{77}
		in.LanguageID = &missing
		_, err := svc.CreateBook(in)
		verr, ok := AsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, verr.Fields, "author")
		assert.Contains(t, verr.Fields, "genre")
		assert.Contains(t, verr.Fields, "language")
	})
}

func TestService_UpdateBook(t *testing.T) {
	svc, _ := setupTestService(t)
	author := mustAuthor(t, svc)
	book, err := svc.CreateBook(validBook(author.ID))
	require.NoError(t, err)

	in := validBook(author.ID)
	in.Title = "Le Comte de Monte-Cristo"
	updated, err := svc.UpdateBook(book.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Le Comte de Monte-Cristo", updated.Title)

	_, err = svc.UpdateBook(999, in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteBook_RejectsWithCopies(t *testing.T) {
	svc, _ := setupTestService(t)
	author := mustAuthor(t, svc)
	book, err := svc.CreateBook(validBook(author.ID))
	require.NoError(t, err)

	inst, err := svc.CreateInstance(book.ID, InstanceInput{Imprint: "Penguin Classics, 2003"})
	require.NoError(t, err)

	_, err = svc.DeleteBook(book.ID)
	assert.ErrorIs(t, err, ErrHasDependents)

	deleted, err := svc.DeleteInstance(inst.ID)
	require.NoError(t, err)
	assert.Equal(t, book.ID, deleted.Book.ID)
	_, err = svc.DeleteBook(book.ID)
	assert.NoError(t, err)
}

func TestService_CreateInstance(t *testing.T) {
	svc, _ := setupTestService(t)
	author := mustAuthor(t, svc)
	book, err := svc.CreateBook(validBook(author.ID))
	require.NoError(t, err)

	inst, err := svc.CreateInstance(book.ID, InstanceInput{Imprint: "Penguin Classics, 2003"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, inst.ID)
	assert.Equal(t, entities.LoanStatusMaintenance, inst.Status)
	assert.Equal(t, "The Count of Monte Cristo ("+inst.ID.String()+")", inst.String())

	_, err = svc.CreateInstance(book.ID, InstanceInput{Imprint: "x", Status: "lost"})
	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, `Select a valid choice. "lost" is not one of the available choices: maintenance, on_loan, available, reserved.`, verr.Fields["status"])

	_, err = svc.CreateInstance(book.ID, InstanceInput{Imprint: strings.Repeat("i", entities.MaxTitleLength+1)})
	verr, ok = AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields["imprint"], fmt.Sprintf("at most %d characters", entities.MaxTitleLength))

	_, err = svc.CreateInstance(book.ID, InstanceInput{})
	verr, ok = AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "imprint")

	_, err = svc.CreateInstance(999, InstanceInput{Imprint: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.DeleteInstance(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_GenresAndLanguages(t *testing.T) {
	svc, _ := setupTestService(t)

	genre, err := svc.CreateGenre("Fantasy")
	require.NoError(t, err)

	_, err = svc.CreateGenre("fantasy")
	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields["name"], "already exists")

	_, err = svc.CreateGenre("   ")
	_, ok = AsValidationError(err)
	assert.True(t, ok)

	_, err = svc.CreateLanguage(strings.Repeat("l", 201))
	_, ok = AsValidationError(err)
	assert.True(t, ok)

	require.NoError(t, svc.DeleteGenre(genre.ID))
	assert.ErrorIs(t, svc.DeleteGenre(genre.ID), ErrNotFound)

	lang, err := svc.CreateLanguage("English")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteLanguage(lang.ID))
	assert.ErrorIs(t, svc.DeleteLanguage(lang.ID), ErrNotFound)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "second", "a": "first"}}
	assert.Equal(t, "validation failed: a: first; b: second", err.Error())
}
