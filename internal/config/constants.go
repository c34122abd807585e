package config

const (
	// DefaultDatabasePath is the default path for the catalog database
	DefaultDatabasePath = "./locallibrary.db"

	DefaultAuthorsPerPage = 10
	DefaultBooksPerPage   = 4
	DefaultLoansPerPage   = 10

	// DefaultDateOfDeath pre-fills the author form. It is advisory only.
	DefaultDateOfDeath = "2021-11-05"
)
