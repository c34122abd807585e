package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/catalog"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
	catalogrepo "github.com/mrlokans/locallibrary/internal/database/catalog"
	"github.com/mrlokans/locallibrary/internal/database/loans"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// ErrCatalogNotEmpty stops seed-demo from mixing demo data into a real
// catalog.
var ErrCatalogNotEmpty = errors.New("catalog already has authors; seed-demo only runs on an empty database")

// SeedDemoCommand fills an empty database with a small demo catalog, a
// librarian and a borrower with a few loans, one of them overdue.
type SeedDemoCommand struct {
	Password     string
	DatabasePath string

	now func() time.Time
}

func NewSeedDemoCommand() *SeedDemoCommand {
	return &SeedDemoCommand{now: time.Now}
}

func (cmd *SeedDemoCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed-demo", flag.ContinueOnError)

	fs.StringVar(&cmd.Password, "password", "", "Password for the demo accounts (default: $LIBRARY_PASSWORD)")
	fs.StringVar(&cmd.DatabasePath, "db", "", "SQLite database path (default: $DATABASE_PATH)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed-demo -password <password> [-db <path>]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Populate an empty database with demo authors, books and loans.\n")
		fmt.Fprintf(os.Stderr, "Creates the accounts 'librarian' and 'borrower'.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Password == "" {
		cmd.Password = os.Getenv("LIBRARY_PASSWORD")
	}
	if cmd.Password == "" {
		return fmt.Errorf("a password is required: pass -password or set LIBRARY_PASSWORD")
	}
	return nil
}

func (cmd *SeedDemoCommand) Run() error {
	db, cfg, err := openDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	return cmd.run(db, cfg, os.Stdout)
}

type demoBook struct {
	title    string
	author   int
	summary  string
	isbn     string
	genres   []string
	language string
	copies   []entities.LoanStatus
}

var (
	demoGenres    = []string{"Fantasy", "Science Fiction", "French Poetry", "Classic"}
	demoLanguages = []string{"English", "French"}
	demoAuthors   = []catalog.AuthorInput{
		{FirstName: "Ursula", LastName: "Le Guin"},
		{FirstName: "Charles", LastName: "Baudelaire"},
		{FirstName: "Jane", LastName: "Austen"},
	}
	demoBooks = []demoBook{
		{
			title:    "A Wizard of Earthsea",
			author:   0,
			summary:  "A young mage sets loose a shadow and must hunt it across the archipelago.",
			isbn:     "9780547773742",
			genres:   []string{"Fantasy"},
			language: "English",
			copies:   []entities.LoanStatus{entities.LoanStatusAvailable, entities.LoanStatusOnLoan, entities.LoanStatusOnLoan},
		},
		{
			title:    "The Left Hand of Darkness",
			author:   0,
			summary:  "An envoy on the winter planet Gethen.",
			isbn:     "9780441478125",
			genres:   []string{"Science Fiction", "Classic"},
			language: "English",
			copies:   []entities.LoanStatus{entities.LoanStatusAvailable, entities.LoanStatusReserved},
		},
		{
			title:    "Les Fleurs du mal",
			author:   1,
			summary:  "Poems of beauty and decay.",
			isbn:     "9782070411078",
			genres:   []string{"French Poetry", "Classic"},
			language: "French",
			copies:   []entities.LoanStatus{entities.LoanStatusMaintenance, entities.LoanStatusOnLoan},
		},
		{
			title:    "Pride and Prejudice",
			author:   2,
			summary:  "Elizabeth Bennet and Mr Darcy misjudge one another.",
			isbn:     "9780141439518",
			genres:   []string{"Classic"},
			language: "English",
			copies:   []entities.LoanStatus{entities.LoanStatusAvailable},
		},
	}
)

func (cmd *SeedDemoCommand) run(db *database.Database, cfg *config.Config, out io.Writer) error {
	repo := catalogrepo.NewRepository(db.DB)
	if _, total, err := repo.ListAuthors(1, 0); err != nil {
		return err
	} else if total > 0 {
		return ErrCatalogNotEmpty
	}

	lifecycle, err := catalog.NewService(repo, cfg.Catalog.DefaultDateOfDeath)
	if err != nil {
		return err
	}
	accounts := auth.NewService(users.NewRepository(db.DB), cfg.Auth)
	loanRepo := loans.NewRepository(db.DB)

	if _, err := accounts.CreateUser("librarian", "librarian@example.com", cmd.Password, entities.UserRoleLibrarian); err != nil {
		return fmt.Errorf("create librarian: %w", err)
	}
	borrower, err := accounts.CreateUser("borrower", "borrower@example.com", cmd.Password, entities.UserRoleMember)
	if err != nil {
		return fmt.Errorf("create borrower: %w", err)
	}

	genres := make(map[string]uint, len(demoGenres))
	for _, name := range demoGenres {
		g, err := lifecycle.CreateGenre(name)
		if err != nil {
			return fmt.Errorf("create genre %q: %w", name, err)
		}
		genres[name] = g.ID
	}
	languages := make(map[string]uint, len(demoLanguages))
	for _, name := range demoLanguages {
		l, err := lifecycle.CreateLanguage(name)
		if err != nil {
			return fmt.Errorf("create language %q: %w", name, err)
		}
		languages[name] = l.ID
	}
	authors := make([]uint, 0, len(demoAuthors))
	for _, in := range demoAuthors {
		a, err := lifecycle.CreateAuthor(in)
		if err != nil {
			return fmt.Errorf("create author %s %s: %w", in.FirstName, in.LastName, err)
		}
		authors = append(authors, a.ID)
	}

	today := entities.DateOf(cmd.now())
	// Loans fall due in turn: the first is already overdue.
	dueOffsets := []int{-3, 5, 12}
	lent, instances := 0, 0

	for _, b := range demoBooks {
		genreIDs := make([]uint, 0, len(b.genres))
		for _, name := range b.genres {
			genreIDs = append(genreIDs, genres[name])
		}
		languageID := languages[b.language]

		book, err := lifecycle.CreateBook(catalog.BookInput{
			Title:      b.title,
			AuthorID:   authors[b.author],
			Summary:    b.summary,
			ISBN:       b.isbn,
			GenreIDs:   genreIDs,
			LanguageID: &languageID,
		})
		if err != nil {
			return fmt.Errorf("create book %q: %w", b.title, err)
		}

		for _, status := range b.copies {
			in := catalog.InstanceInput{Imprint: "Demo Press, 2020", Status: status}
			if status == entities.LoanStatusOnLoan {
				in.Status = entities.LoanStatusAvailable
			}
			instance, err := lifecycle.CreateInstance(book.ID, in)
			if err != nil {
				return fmt.Errorf("create copy of %q: %w", b.title, err)
			}
			instances++

			if status == entities.LoanStatusOnLoan {
				due := today.AddDate(0, 0, dueOffsets[lent%len(dueOffsets)])
				if err := loanRepo.Lend(instance.ID, borrower.ID, due); err != nil {
					return fmt.Errorf("lend %s: %w", instance.ID, err)
				}
				lent++
			}
		}
	}

	fmt.Fprintf(out, "Seeded %d authors, %d books, %d copies (%d on loan to %q)\n",
		len(authors), len(demoBooks), instances, lent, borrower.Username)
	fmt.Fprintf(out, "Sign in as 'librarian' or 'borrower' with the password you supplied.\n")
	return nil
}
