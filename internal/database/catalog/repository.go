// Package catalog provides database operations for authors, books, genres,
// languages and book copies.
//
// # Usage
//
//	repo := catalog.NewRepository(db)
//	book, err := repo.GetBookByID(42)
//	fmt.Println(book.DisplayGenre())
package catalog

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/entities"
)

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Authors

func (r *Repository) CreateAuthor(author *entities.Author) error {
	return r.db.Omit("Books").Create(author).Error
}

func (r *Repository) UpdateAuthor(author *entities.Author) error {
	return r.db.Model(&entities.Author{ID: author.ID}).
		Select("first_name", "last_name", "date_of_birth", "date_of_death").
		Updates(author).Error
}

func (r *Repository) DeleteAuthor(id uint) error {
	result := r.db.Delete(&entities.Author{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetAuthorByID loads an author together with the books they wrote.
func (r *Repository) GetAuthorByID(id uint) (*entities.Author, error) {
	var author entities.Author
	err := r.db.Preload("Books", func(db *gorm.DB) *gorm.DB {
		return db.Order("title ASC")
	}).First(&author, id).Error
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// ListAuthors returns a page of authors ordered by last then first name.
func (r *Repository) ListAuthors(limit, offset int) ([]entities.Author, int64, error) {
	var authors []entities.Author
	var total int64

	if err := r.db.Model(&entities.Author{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("last_name ASC, first_name ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&authors).Error
	return authors, total, err
}

func (r *Repository) CountBooksByAuthor(authorID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

// Books

// CreateBook inserts the book and attaches genreIDs in the given order.
func (r *Repository) CreateBook(book *entities.Book, genreIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Language").Create(book).Error; err != nil {
			return err
		}
		return replaceGenres(tx, book.ID, genreIDs)
	})
}

// UpdateBook saves scalar fields and replaces the genre list.
func (r *Repository) UpdateBook(book *entities.Book, genreIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&entities.Book{ID: book.ID}).
			Select("title", "author_id", "summary", "isbn", "language_id").
			Updates(book).Error
		if err != nil {
			return err
		}
		return replaceGenres(tx, book.ID, genreIDs)
	})
}

func replaceGenres(tx *gorm.DB, bookID uint, genreIDs []uint) error {
	if err := tx.Where("book_id = ?", bookID).Delete(&entities.BookGenre{}).Error; err != nil {
		return fmt.Errorf("failed to clear genres: %w", err)
	}
	seen := make(map[uint]bool, len(genreIDs))
	links := make([]entities.BookGenre, 0, len(genreIDs))
	for _, id := range genreIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		links = append(links, entities.BookGenre{BookID: bookID, GenreID: id, Position: len(links)})
	}
	if len(links) == 0 {
		return nil
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to attach genres: %w", err)
	}
	return nil
}

func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookGenre{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// GetBookByID loads a book with its author, language and ordered genres.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.Preload("Author").Preload("Language").First(&book, id).Error; err != nil {
		return nil, err
	}
	books := []entities.Book{book}
	if err := r.loadGenres(books); err != nil {
		return nil, err
	}
	return &books[0], nil
}

// ListBooks returns a page of books ordered by title.
func (r *Repository) ListBooks(limit, offset int) ([]entities.Book, int64, error) {
	var books []entities.Book
	var total int64

	if err := r.db.Model(&entities.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Preload("Author").
		Order("title ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&books).Error
	if err != nil {
		return nil, 0, err
	}
	if err := r.loadGenres(books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

type bookGenreRow struct {
	BookID uint
	ID     uint
	Name   string
}

// loadGenres fills Genres on each book, preserving attach order.
func (r *Repository) loadGenres(books []entities.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]uint, len(books))
	index := make(map[uint]int, len(books))
	for i := range books {
		ids[i] = books[i].ID
		index[books[i].ID] = i
		books[i].Genres = []entities.Genre{}
	}

	var rows []bookGenreRow
	err := r.db.Table("book_genres").
		Select("book_genres.book_id, genres.id, genres.name").
		Joins("JOIN genres ON genres.id = book_genres.genre_id").
		Where("book_genres.book_id IN ?", ids).
		Order("book_genres.book_id, book_genres.position").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to load genres: %w", err)
	}
	for _, row := range rows {
		i := index[row.BookID]
		books[i].Genres = append(books[i].Genres, entities.Genre{ID: row.ID, Name: row.Name})
	}
	return nil
}

func (r *Repository) CountInstancesForBook(bookID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.BookInstance{}).Where("book_id = ?", bookID).Count(&count).Error
	return count, err
}

func (r *Repository) AuthorExists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Author{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Genres and languages

func (r *Repository) CreateGenre(genre *entities.Genre) error {
	return r.db.Create(genre).Error
}

func (r *Repository) ListGenres() ([]entities.Genre, error) {
	var genres []entities.Genre
	err := r.db.Order("name ASC").Find(&genres).Error
	return genres, err
}

// GenreNameExists matches names case-insensitively.
func (r *Repository) GenreNameExists(name string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Genre{}).Where("LOWER(name) = LOWER(?)", name).Count(&count).Error
	return count > 0, err
}

// GetGenresByIDs returns the genres that exist among ids.
func (r *Repository) GetGenresByIDs(ids []uint) ([]entities.Genre, error) {
	var genres []entities.Genre
	if len(ids) == 0 {
		return genres, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&genres).Error
	return genres, err
}

// DeleteGenre removes the genre and detaches it from every book.
func (r *Repository) DeleteGenre(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("genre_id = ?", id).Delete(&entities.BookGenre{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Genre{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *Repository) CreateLanguage(language *entities.Language) error {
	return r.db.Create(language).Error
}

func (r *Repository) ListLanguages() ([]entities.Language, error) {
	var languages []entities.Language
	err := r.db.Order("name ASC").Find(&languages).Error
	return languages, err
}

// LanguageNameExists matches names case-insensitively.
func (r *Repository) LanguageNameExists(name string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Language{}).Where("LOWER(name) = LOWER(?)", name).Count(&count).Error
	return count > 0, err
}

func (r *Repository) GetLanguageByID(id uint) (*entities.Language, error) {
	var language entities.Language
	if err := r.db.First(&language, id).Error; err != nil {
		return nil, err
	}
	return &language, nil
}

// DeleteLanguage removes the language and clears it on every book.
func (r *Repository) DeleteLanguage(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&entities.Book{}).Where("language_id = ?", id).Update("language_id", nil).Error
		if err != nil {
			return err
		}
		result := tx.Delete(&entities.Language{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Book copies

func (r *Repository) CreateInstance(instance *entities.BookInstance) error {
	return r.db.Omit("Book", "Borrower").Create(instance).Error
}

func (r *Repository) GetInstance(id uuid.UUID) (*entities.BookInstance, error) {
	var instance entities.BookInstance
	if err := r.db.Preload("Book").First(&instance, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

// ListInstancesForBook returns every copy of a book.
func (r *Repository) ListInstancesForBook(bookID uint) ([]entities.BookInstance, error) {
	var instances []entities.BookInstance
	err := r.db.Where("book_id = ?", bookID).Order("created_at ASC").Find(&instances).Error
	return instances, err
}

func (r *Repository) DeleteInstance(id uuid.UUID) error {
	result := r.db.Delete(&entities.BookInstance{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
