package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/entities"
)

func bookIDFromLocation(t *testing.T, location string) uint {
	t.Helper()
	var id uint
	_, err := fmt.Sscanf(location, "/catalog/book/%d", &id)
	require.NoError(t, err, location)
	return id
}

func TestCreateBook(t *testing.T) {
	app, staff := staffApp(t)
	author := app.addAuthor(t, "Gabriel", "Garcia Marquez")
	novel := &entities.Genre{Name: "Novel"}
	magic := &entities.Genre{Name: "Magical Realism"}
	require.NoError(t, app.catalog.CreateGenre(novel))
	require.NoError(t, app.catalog.CreateGenre(magic))
	spanish := &entities.Language{Name: "Spanish"}
	require.NoError(t, app.catalog.CreateLanguage(spanish))

	w := app.post("/catalog/book/create/", url.Values{
		"title":    {"One Hundred Years of Solitude"},
		"author":   {strconv.FormatUint(uint64(author.ID), 10)},
		"summary":  {"The Buendia family over seven generations."},
		"isbn":     {"9780060883287"},
		"genre":    {strconv.FormatUint(uint64(magic.ID), 10), strconv.FormatUint(uint64(novel.ID), 10)},
		"language": {strconv.FormatUint(uint64(spanish.ID), 10)},
	}, staff)

	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	book, err := app.catalog.GetBookByID(bookIDFromLocation(t, w.Header().Get("Location")))
	require.NoError(t, err)
	assert.Equal(t, "One Hundred Years of Solitude", book.Title)
	assert.Equal(t, "Magical Realism, Novel", book.DisplayGenre())
	require.NotNil(t, book.LanguageID)
	assert.Equal(t, spanish.ID, *book.LanguageID)
}

func TestCreateBook_JSON(t *testing.T) {
	app, staff := staffApp(t)
	author := app.addAuthor(t, "Jorge Luis", "Borges")

	body := fmt.Sprintf(`{"title":"Ficciones","author":%d,"summary":"Short stories.","isbn":"9780802130303","genre":[]}`, author.ID)
	w := app.postJSON("/catalog/book/create/", body, staff)

	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	book, err := app.catalog.GetBookByID(bookIDFromLocation(t, w.Header().Get("Location")))
	require.NoError(t, err)
	assert.Nil(t, book.LanguageID)
	assert.Empty(t, book.Genres)
}

func TestCreateBook_InvalidInput(t *testing.T) {
	app, staff := staffApp(t)
	author := app.addAuthor(t, "Some", "One")
	authorID := strconv.FormatUint(uint64(author.ID), 10)

	valid := func() url.Values {
		return url.Values{
			"title":   {"A Title"},
			"author":  {authorID},
			"summary": {"Summary"},
			"isbn":    {"9780000000001"},
		}
	}

	tests := []struct {
		name      string
		mutate    func(url.Values)
		wantField string
	}{
		{"missing title", func(v url.Values) { v.Del("title") }, "title"},
		{"short isbn", func(v url.Values) { v.Set("isbn", "123") }, "isbn"},
		{"unknown author", func(v url.Values) { v.Set("author", "999") }, "author"},
		{"unknown genre", func(v url.Values) { v.Set("genre", "42") }, "genre"},
		{"unknown language", func(v url.Values) { v.Set("language", "42") }, "language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid()
			tt.mutate(form)

			w := app.post("/catalog/book/create/", form, staff)

			require.Equal(t, http.StatusOK, w.Code)
			_, errs := decodeForm[BookForm](t, w.Body.Bytes())
			assert.Contains(t, errs, tt.wantField)
		})
	}

	var count int64
	require.NoError(t, app.db.DB.Model(&entities.Book{}).Count(&count).Error)
	assert.Zero(t, count)
}

func decodeHelpText(t *testing.T, body []byte) map[string]string {
	t.Helper()
	var resp struct {
		HelpText map[string]string `json:"help_text"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.HelpText
}

func TestNewBookForm_HelpText(t *testing.T) {
	app, staff := staffApp(t)

	w := app.get("/catalog/book/create/", staff)
	require.Equal(t, http.StatusOK, w.Code)

	help := decodeHelpText(t, w.Body.Bytes())
	assert.Contains(t, help["isbn"], "isbn-international.org")
	assert.Equal(t, entities.SummaryHelpText, help["summary"])
	assert.Equal(t, entities.BookGenreHelpText, help["genre"])
}

func TestUpdateBook(t *testing.T) {
	app, staff := staffApp(t)
	author := app.addAuthor(t, "George", "Orwell")
	book := app.addBook(t, "Ninteen Eighty-Four", author)
	path := fmt.Sprintf("/catalog/book/%d/update/", book.ID)

	w := app.get(path, staff)
	require.Equal(t, http.StatusOK, w.Code)
	form, _ := decodeForm[BookForm](t, w.Body.Bytes())
	assert.Equal(t, "Ninteen Eighty-Four", form.Title)
	assert.Equal(t, author.ID, form.Author)
	assert.Contains(t, decodeHelpText(t, w.Body.Bytes())["isbn"], "isbn-international.org")

	w = app.post(path, url.Values{
		"title":   {"Nineteen Eighty-Four"},
		"author":  {strconv.FormatUint(uint64(author.ID), 10)},
		"summary": {book.Summary},
		"isbn":    {book.ISBN},
	}, staff)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, book.URL(), w.Header().Get("Location"))

	updated, err := app.catalog.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nineteen Eighty-Four", updated.Title)
}

func TestDeleteBook(t *testing.T) {
	app, staff := staffApp(t)
	author := app.addAuthor(t, "Albert", "Camus")
	book := app.addBook(t, "The Plague", author)
	instance := app.addInstance(t, book, entities.LoanStatusAvailable)
	path := fmt.Sprintf("/catalog/book/%d/delete/", book.ID)

	w := app.get(path, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deletable":false`)

	assert.Equal(t, http.StatusConflict, app.post(path, nil, staff).Code)

	require.NoError(t, app.catalog.DeleteInstance(instance.ID))

	w = app.post(path, nil, staff)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/catalog/books/", w.Header().Get("Location"))
	assert.Equal(t, http.StatusNotFound, app.get(book.URL(), nil).Code)
}

func TestCreateInstance(t *testing.T) {
	app, staff := staffApp(t)
	author := app.addAuthor(t, "Homer", "Unknown")
	book := app.addBook(t, "The Odyssey", author)
	path := fmt.Sprintf("/catalog/book/%d/instances/", book.ID)

	t.Run("defaults to maintenance", func(t *testing.T) {
		w := app.post(path, url.Values{"imprint": {"Penguin Classics, 2003"}}, staff)
		require.Equal(t, http.StatusFound, w.Code, w.Body.String())
		assert.Equal(t, book.URL(), w.Header().Get("Location"))
	})

	t.Run("status by name", func(t *testing.T) {
		w := app.post(path, url.Values{"imprint": {"Vintage, 1990"}, "status": {"available"}}, staff)
		require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	})

	t.Run("unknown status", func(t *testing.T) {
		w := app.post(path, url.Values{"imprint": {"Vintage, 1990"}, "status": {"lost"}}, staff)
		require.Equal(t, http.StatusOK, w.Code)
		_, errs := decodeForm[InstanceForm](t, w.Body.Bytes())
		assert.Contains(t, errs, "status")
	})

	t.Run("missing imprint", func(t *testing.T) {
		w := app.post(path, url.Values{"status": {"a"}}, staff)
		require.Equal(t, http.StatusOK, w.Code)
		_, errs := decodeForm[InstanceForm](t, w.Body.Bytes())
		assert.Contains(t, errs, "imprint")
	})

	t.Run("unknown book", func(t *testing.T) {
		w := app.post("/catalog/book/999/instances/", url.Values{"imprint": {"X"}}, staff)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	copies, err := app.catalog.ListInstancesForBook(book.ID)
	require.NoError(t, err)
	require.Len(t, copies, 2)
	statuses := []entities.LoanStatus{copies[0].Status, copies[1].Status}
	assert.ElementsMatch(t, []entities.LoanStatus{entities.LoanStatusMaintenance, entities.LoanStatusAvailable}, statuses)
}

func TestCreateGenreAndLanguage(t *testing.T) {
	app, staff := staffApp(t)

	w := app.post("/catalog/genre/create/", url.Values{"name": {"Fantasy"}}, staff)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/catalog/genres/", w.Header().Get("Location"))

	w = app.post("/catalog/genre/create/", url.Values{"name": {"fantasy"}}, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")

	w = app.post("/catalog/language/create/", url.Values{"name": {"Esperanto"}}, staff)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/catalog/languages/", w.Header().Get("Location"))

	w = app.post("/catalog/language/create/", url.Values{"name": {""}}, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")

	genres, err := app.catalog.ListGenres()
	require.NoError(t, err)
	assert.Len(t, genres, 1)
}

func TestBookLifecycle_MemberForbidden(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "member", entities.UserRoleMember)
	member := app.login(t, "member")
	author := app.addAuthor(t, "A", "B")
	book := app.addBook(t, "Untouchable", author)
	instance := app.addInstance(t, book, entities.LoanStatusAvailable)

	for _, path := range []string{
		"/catalog/book/create/",
		fmt.Sprintf("/catalog/book/%d/update/", book.ID),
		fmt.Sprintf("/catalog/book/%d/delete/", book.ID),
		fmt.Sprintf("/catalog/book/%d/instances/", book.ID),
		"/catalog/genre/create/",
		"/catalog/language/create/",
		"/catalog/genre/1/delete/",
		"/catalog/language/1/delete/",
		"/catalog/bookinstance/" + instance.ID.String() + "/delete/",
	} {
		assert.Equal(t, http.StatusForbidden, app.post(path, url.Values{"name": {"x"}}, member).Code, path)
	}

	_, err := app.catalog.GetBookByID(book.ID)
	assert.NoError(t, err)
	_, err = app.catalog.GetInstance(instance.ID)
	assert.NoError(t, err)
}

func TestDeleteInstance(t *testing.T) {
	app, staff := staffApp(t)
	author := app.addAuthor(t, "Albert", "Camus")
	book := app.addBook(t, "The Stranger", author)
	instance := app.addInstance(t, book, entities.LoanStatusAvailable)
	path := "/catalog/bookinstance/" + instance.ID.String() + "/delete/"

	w := app.post(path, nil, staff)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, book.URL(), w.Header().Get("Location"))

	copies, err := app.catalog.ListInstancesForBook(book.ID)
	require.NoError(t, err)
	assert.Empty(t, copies)

	entries := app.auditor.all()
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, "delete", last.action)
	assert.Equal(t, "book_instance", last.entityType)
	assert.Equal(t, instance.ID.String(), last.entityID)

	t.Run("already deleted", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, app.post(path, nil, staff).Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, app.post("/catalog/bookinstance/not-a-uuid/delete/", nil, staff).Code)
	})
}

func TestDeleteGenreAndLanguage(t *testing.T) {
	app, staff := staffApp(t)

	genre := &entities.Genre{Name: "Absurdist fiction"}
	require.NoError(t, app.catalog.CreateGenre(genre))
	language := &entities.Language{Name: "French"}
	require.NoError(t, app.catalog.CreateLanguage(language))

	author := app.addAuthor(t, "Albert", "Camus")
	book := &entities.Book{
		Title:      "The Fall",
		AuthorID:   author.ID,
		Summary:    "A confession in an Amsterdam bar.",
		ISBN:       "9780000000000",
		LanguageID: &language.ID,
	}
	require.NoError(t, app.catalog.CreateBook(book, []uint{genre.ID}))

	genrePath := fmt.Sprintf("/catalog/genre/%d/delete/", genre.ID)
	w := app.post(genrePath, nil, staff)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/catalog/genres/", w.Header().Get("Location"))

	languagePath := fmt.Sprintf("/catalog/language/%d/delete/", language.ID)
	w = app.post(languagePath, nil, staff)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/catalog/languages/", w.Header().Get("Location"))

	kept, err := app.catalog.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.Genres)
	assert.Nil(t, kept.LanguageID)

	entries := app.auditor.all()
	require.Len(t, entries, 2)
	assert.Equal(t, auditEntry{userID: entries[0].userID, action: "delete", entityType: "genre", entityID: fmt.Sprint(genre.ID)}, entries[0])
	assert.Equal(t, "language", entries[1].entityType)

	assert.Equal(t, http.StatusNotFound, app.post(genrePath, nil, staff).Code)
	assert.Equal(t, http.StatusNotFound, app.post(languagePath, nil, staff).Code)
}
