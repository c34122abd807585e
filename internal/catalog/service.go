// Package catalog implements the staff-facing lifecycle of the catalog:
// creating, editing and deleting authors, books, genres, languages and
// book copies. Callers are expected to have checked the staff permission.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/entities"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrHasDependents = errors.New("cannot delete: dependent records exist")
)

// Store is the persistence the lifecycle needs. database/catalog.Repository
// implements it.
type Store interface {
	CreateAuthor(author *entities.Author) error
	UpdateAuthor(author *entities.Author) error
	DeleteAuthor(id uint) error
	GetAuthorByID(id uint) (*entities.Author, error)
	AuthorExists(id uint) (bool, error)
	CountBooksByAuthor(authorID uint) (int64, error)

	CreateBook(book *entities.Book, genreIDs []uint) error
	UpdateBook(book *entities.Book, genreIDs []uint) error
	DeleteBook(id uint) error
	GetBookByID(id uint) (*entities.Book, error)
	CountInstancesForBook(bookID uint) (int64, error)

	CreateGenre(genre *entities.Genre) error
	DeleteGenre(id uint) error
	GenreNameExists(name string) (bool, error)
	GetGenresByIDs(ids []uint) ([]entities.Genre, error)

	CreateLanguage(language *entities.Language) error
	DeleteLanguage(id uint) error
	LanguageNameExists(name string) (bool, error)
	GetLanguageByID(id uint) (*entities.Language, error)

	CreateInstance(instance *entities.BookInstance) error
	GetInstance(id uuid.UUID) (*entities.BookInstance, error)
	DeleteInstance(id uuid.UUID) error
}

type AuthorInput struct {
	FirstName   string     `json:"first_name" validate:"required,name_len"`
	LastName    string     `json:"last_name" validate:"required,name_len"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	DateOfDeath *time.Time `json:"date_of_death"`
}

type BookInput struct {
	Title      string `json:"title" validate:"required,title_len"`
	AuthorID   uint   `json:"author" validate:"required"`
	Summary    string `json:"summary" validate:"required,summary_len"`
	ISBN       string `json:"isbn" validate:"required,isbn_len"`
	GenreIDs   []uint `json:"genre"`
	LanguageID *uint  `json:"language"`
}

type InstanceInput struct {
	Imprint    string              `json:"imprint" validate:"required,imprint_len"`
	Status     entities.LoanStatus `json:"status"`
	DueBack    *time.Time          `json:"due_back"`
	BorrowerID *uint               `json:"borrower"`
}

// AuthorForm is the initial state of the author entry form.
type AuthorForm struct {
	DateOfDeath *time.Time `json:"date_of_death"`
}

type Service struct {
	store              Store
	validate           *validator.Validate
	defaultDateOfDeath *time.Time
}

// NewService creates the lifecycle service. defaultDateOfDeath is an
// advisory initial value for the author form, as YYYY-MM-DD or empty.
func NewService(store Store, defaultDateOfDeath string) (*Service, error) {
	s := &Service{store: store, validate: newValidator()}
	if defaultDateOfDeath != "" {
		d, err := entities.ParseDate(defaultDateOfDeath)
		if err != nil {
			return nil, fmt.Errorf("invalid default date of death: %w", err)
		}
		s.defaultDateOfDeath = &d
	}
	return s, nil
}

// AuthorFormDefaults returns the initial values of a fresh author form.
func (s *Service) AuthorFormDefaults() AuthorForm {
	return AuthorForm{DateOfDeath: s.defaultDateOfDeath}
}

// Authors

func (s *Service) CreateAuthor(in AuthorInput) (*entities.Author, error) {
	in = normalizeAuthor(in)
	if err := s.validateStruct(in).orNil(); err != nil {
		return nil, err
	}

	author := &entities.Author{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DateOfBirth: in.DateOfBirth,
		DateOfDeath: in.DateOfDeath,
	}
	if err := s.store.CreateAuthor(author); err != nil {
		return nil, fmt.Errorf("failed to create author: %w", err)
	}
	return author, nil
}

func (s *Service) UpdateAuthor(id uint, in AuthorInput) (*entities.Author, error) {
	author, err := s.store.GetAuthorByID(id)
	if err != nil {
		return nil, notFound(err, "author")
	}

	in = normalizeAuthor(in)
	if err := s.validateStruct(in).orNil(); err != nil {
		return nil, err
	}

	author.FirstName = in.FirstName
	author.LastName = in.LastName
	author.DateOfBirth = in.DateOfBirth
	author.DateOfDeath = in.DateOfDeath
	if err := s.store.UpdateAuthor(author); err != nil {
		return nil, fmt.Errorf("failed to update author: %w", err)
	}
	return author, nil
}

// DeleteAuthor refuses while the author still has books.
func (s *Service) DeleteAuthor(id uint) (*entities.Author, error) {
	author, err := s.store.GetAuthorByID(id)
	if err != nil {
		return nil, notFound(err, "author")
	}

	books, err := s.store.CountBooksByAuthor(id)
	if err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	if books > 0 {
		return nil, fmt.Errorf("%w: author %q has %d book(s)", ErrHasDependents, author.String(), books)
	}

	if err := s.store.DeleteAuthor(id); err != nil {
		return nil, notFound(err, "author")
	}
	return author, nil
}

// Books

func (s *Service) CreateBook(in BookInput) (*entities.Book, error) {
	in = normalizeBook(in)
	if err := s.validateBook(in); err != nil {
		return nil, err
	}

	book := &entities.Book{
		Title:      in.Title,
		AuthorID:   in.AuthorID,
		Summary:    in.Summary,
		ISBN:       in.ISBN,
		LanguageID: in.LanguageID,
	}
	if err := s.store.CreateBook(book, in.GenreIDs); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return s.reloadBook(book.ID)
}

func (s *Service) UpdateBook(id uint, in BookInput) (*entities.Book, error) {
	book, err := s.store.GetBookByID(id)
	if err != nil {
		return nil, notFound(err, "book")
	}

	in = normalizeBook(in)
	if err := s.validateBook(in); err != nil {
		return nil, err
	}

	book.Title = in.Title
	book.AuthorID = in.AuthorID
	book.Summary = in.Summary
	book.ISBN = in.ISBN
	book.LanguageID = in.LanguageID
	if err := s.store.UpdateBook(book, in.GenreIDs); err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	return s.reloadBook(id)
}

// DeleteBook refuses while copies of the book exist.
func (s *Service) DeleteBook(id uint) (*entities.Book, error) {
	book, err := s.store.GetBookByID(id)
	if err != nil {
		return nil, notFound(err, "book")
	}

	copies, err := s.store.CountInstancesForBook(id)
	if err != nil {
		return nil, fmt.Errorf("failed to count copies: %w", err)
	}
	if copies > 0 {
		return nil, fmt.Errorf("%w: book %q has %d copy(ies)", ErrHasDependents, book.Title, copies)
	}

	if err := s.store.DeleteBook(id); err != nil {
		return nil, notFound(err, "book")
	}
	return book, nil
}

func (s *Service) reloadBook(id uint) (*entities.Book, error) {
	book, err := s.store.GetBookByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload book: %w", err)
	}
	return book, nil
}

// validateBook checks the field rules and then that every referenced
// author, genre and language exists.
func (s *Service) validateBook(in BookInput) error {
	verr := s.validateStruct(in)

	if in.AuthorID != 0 {
		exists, err := s.store.AuthorExists(in.AuthorID)
		if err != nil {
			return fmt.Errorf("failed to check author: %w", err)
		}
		if !exists {
			verr.add("author", "Select a valid choice. That choice is not one of the available choices.")
		}
	}

	if len(in.GenreIDs) > 0 {
		genres, err := s.store.GetGenresByIDs(in.GenreIDs)
		if err != nil {
			return fmt.Errorf("failed to check genres: %w", err)
		}
		known := make(map[uint]bool, len(genres))
		for _, g := range genres {
			known[g.ID] = true
		}
		for _, id := range in.GenreIDs {
			if !known[id] {
				verr.add("genre", fmt.Sprintf("Select a valid choice. %d is not one of the available choices.", id))
				break
			}
		}
	}

	if in.LanguageID != nil {
		if _, err := s.store.GetLanguageByID(*in.LanguageID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to check language: %w", err)
			}
			verr.add("language", "Select a valid choice. That choice is not one of the available choices.")
		}
	}

	return verr.orNil()
}

// Genres and languages

func (s *Service) CreateGenre(name string) (*entities.Genre, error) {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}
	exists, err := s.store.GenreNameExists(name)
	if err != nil {
		return nil, fmt.Errorf("failed to check genre: %w", err)
	}
	if exists {
		return nil, &ValidationError{Fields: map[string]string{"name": "Genre already exists (case insensitive match)"}}
	}

	genre := &entities.Genre{Name: name}
	if err := s.store.CreateGenre(genre); err != nil {
		return nil, fmt.Errorf("failed to create genre: %w", err)
	}
	return genre, nil
}

// DeleteGenre detaches the genre from its books before removing it.
func (s *Service) DeleteGenre(id uint) error {
	return notFound(s.store.DeleteGenre(id), "genre")
}

func (s *Service) CreateLanguage(name string) (*entities.Language, error) {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}
	exists, err := s.store.LanguageNameExists(name)
	if err != nil {
		return nil, fmt.Errorf("failed to check language: %w", err)
	}
	if exists {
		return nil, &ValidationError{Fields: map[string]string{"name": "Language already exists (case insensitive match)"}}
	}

	language := &entities.Language{Name: name}
	if err := s.store.CreateLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to create language: %w", err)
	}
	return language, nil
}

// DeleteLanguage clears the language on its books before removing it.
func (s *Service) DeleteLanguage(id uint) error {
	return notFound(s.store.DeleteLanguage(id), "language")
}

func validateCategoryName(name string) error {
	verr := &ValidationError{}
	switch {
	case name == "":
		verr.add("name", "This field is required.")
	case len([]rune(name)) > entities.MaxCategoryLength:
		verr.add("name", fmt.Sprintf("Ensure this value has at most %d characters.", entities.MaxCategoryLength))
	}
	return verr.orNil()
}

// Book copies

func invalidStatusMessage(status entities.LoanStatus) string {
	choices := make([]string, 0, 4)
	for _, st := range entities.LoanStatuses() {
		choices = append(choices, st.String())
	}
	return fmt.Sprintf("Select a valid choice. %q is not one of the available choices: %s.", string(status), strings.Join(choices, ", "))
}

// CreateInstance adds a physical copy of a book. Copies start in
// maintenance unless a status is given.
func (s *Service) CreateInstance(bookID uint, in InstanceInput) (*entities.BookInstance, error) {
	book, err := s.store.GetBookByID(bookID)
	if err != nil {
		return nil, notFound(err, "book")
	}

	in.Imprint = strings.TrimSpace(in.Imprint)
	verr := s.validateStruct(in)
	if in.Status == "" {
		in.Status = entities.LoanStatusMaintenance
	}
	if !in.Status.Valid() {
		verr.add("status", invalidStatusMessage(in.Status))
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	instance := &entities.BookInstance{
		BookID:     book.ID,
		Imprint:    in.Imprint,
		Status:     in.Status,
		DueBack:    in.DueBack,
		BorrowerID: in.BorrowerID,
	}
	if err := s.store.CreateInstance(instance); err != nil {
		return nil, fmt.Errorf("failed to create book instance: %w", err)
	}
	instance.Book = book
	return instance, nil
}

// DeleteInstance removes a copy and returns it, with its book, as it was.
func (s *Service) DeleteInstance(id uuid.UUID) (*entities.BookInstance, error) {
	instance, err := s.store.GetInstance(id)
	if err != nil {
		return nil, notFound(err, "book instance")
	}
	if err := s.store.DeleteInstance(id); err != nil {
		return nil, notFound(err, "book instance")
	}
	return instance, nil
}

func normalizeAuthor(in AuthorInput) AuthorInput {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	return in
}

func normalizeBook(in BookInput) BookInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Summary = strings.TrimSpace(in.Summary)
	in.ISBN = strings.TrimSpace(in.ISBN)
	return in
}

// notFound maps gorm's missing-record error onto ErrNotFound.
func notFound(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return err
}
