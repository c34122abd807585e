package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Field size limits shared by the schema and the lifecycle validation.
const (
	MaxNameLength     = 100
	MaxCategoryLength = 200
	MaxTitleLength    = 200
	MaxSummaryLength  = 1000
	ISBNLength        = 13
)

// Help texts shown next to form fields.
const (
	GenreHelpText     = "Enter a book genre (e.g. Science Fiction, French Poetry etc.)"
	LanguageHelpText  = "Enter the book's natural language (e.g. English, French, Japanese etc.)"
	SummaryHelpText   = "Enter a brief description of the book"
	ISBNHelpText      = `13 Character <a href="https://www.isbn-international.org/content/what-isbn">ISBN number</a>`
	BookGenreHelpText = "Select a genre for this book"
)

type Author struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FirstName   string     `gorm:"size:100;not null" json:"first_name"`
	LastName    string     `gorm:"index;size:100;not null" json:"last_name"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth"`
	DateOfDeath *time.Time `gorm:"type:date" json:"date_of_death"`
	Books       []Book     `gorm:"foreignKey:AuthorID" json:"books,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Author) TableName() string {
	return "authors"
}

// String renders the author as "last_name, first_name".
func (a Author) String() string {
	return fmt.Sprintf("%s, %s", a.LastName, a.FirstName)
}

func (a Author) URL() string {
	return fmt.Sprintf("/catalog/author/%d", a.ID)
}

type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:200;not null" json:"name"`
}

func (Genre) TableName() string {
	return "genres"
}

func (g Genre) String() string {
	return g.Name
}

type Language struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:200;not null" json:"name"`
}

func (Language) TableName() string {
	return "languages"
}

func (l Language) String() string {
	return l.Name
}

type Book struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"index;size:200;not null" json:"title"`
	AuthorID   uint      `gorm:"index;not null" json:"author_id"`
	Author     *Author   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Summary    string    `gorm:"size:1000" json:"summary"`
	ISBN       string    `gorm:"column:isbn;size:13" json:"isbn"`
	LanguageID *uint     `gorm:"index" json:"language_id"`
	Language   *Language `gorm:"foreignKey:LanguageID" json:"language,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Genres are stored through BookGenre so the order they were attached in
	// survives a round trip. The repository loads and writes them.
	Genres []Genre `gorm:"-" json:"genres"`
}

func (Book) TableName() string {
	return "books"
}

func (b Book) String() string {
	return b.Title
}

func (b Book) URL() string {
	return fmt.Sprintf("/catalog/book/%d", b.ID)
}

// DisplayGenre joins genre names in the order they were attached.
func (b Book) DisplayGenre() string {
	names := make([]string, 0, len(b.Genres))
	for _, g := range b.Genres {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

// BookGenre links a book to a genre. Position keeps insertion order.
type BookGenre struct {
	BookID   uint `gorm:"primaryKey"`
	GenreID  uint `gorm:"primaryKey;index"`
	Position int  `gorm:"not null;default:0"`
}

func (BookGenre) TableName() string {
	return "book_genres"
}

// BookInstance is a physical copy of a book that can be borrowed.
type BookInstance struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     uint       `gorm:"index;not null" json:"book_id"`
	Book       *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Imprint    string     `gorm:"size:200" json:"imprint"`
	DueBack    *time.Time `gorm:"type:date;index" json:"due_back"`
	BorrowerID *uint      `gorm:"index" json:"borrower_id"`
	Borrower   *User      `gorm:"foreignKey:BorrowerID" json:"-"`
	Status     LoanStatus `gorm:"size:1;not null;default:m;index" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (BookInstance) TableName() string {
	return "book_instances"
}

func (bi *BookInstance) BeforeCreate(tx *gorm.DB) error {
	if bi.ID == uuid.Nil {
		bi.ID = uuid.New()
	}
	if bi.Status == "" {
		bi.Status = LoanStatusMaintenance
	}
	return nil
}

// IsOverdue reports whether the copy was due back before today.
func (bi BookInstance) IsOverdue(today time.Time) bool {
	return bi.DueBack != nil && DateOf(*bi.DueBack).Before(DateOf(today))
}

// String renders the copy as "<book title> (<id>)".
func (bi BookInstance) String() string {
	title := ""
	if bi.Book != nil {
		title = bi.Book.Title
	}
	return fmt.Sprintf("%s (%s)", title, bi.ID)
}
