package circulation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/locallibrary/internal/database/loans"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// fakeStore counts writes so tests can assert nothing was persisted.
type fakeStore struct {
	instances map[uuid.UUID]*entities.BookInstance
	writes    int
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{instances: make(map[uuid.UUID]*entities.BookInstance)}
}

func (f *fakeStore) add(dueBack time.Time) *entities.BookInstance {
	inst := &entities.BookInstance{ID: uuid.New(), Status: entities.LoanStatusOnLoan, DueBack: &dueBack}
	f.instances[inst.ID] = inst
	return inst
}

func (f *fakeStore) GetInstance(id uuid.UUID) (*entities.BookInstance, error) {
	inst, ok := f.instances[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *inst
	return &cp, nil
}

func (f *fakeStore) UpdateDueBack(id uuid.UUID, dueBack time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.writes++
	f.instances[id].DueBack = &dueBack
	return nil
}

var (
	fixedNow  = time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)
	today     = entities.DateOf(fixedNow)
	librarian = &entities.User{
		ID:          1,
		Role:        entities.UserRoleLibrarian,
		Permissions: []entities.UserPermission{{Codename: entities.PermissionCanMarkReturned}},
	}
	member = &entities.User{ID: 2, Role: entities.UserRoleMember}
)

func newTestService(store InstanceStore) *Service {
	return NewService(store, func() time.Time { return fixedNow }, time.UTC)
}

func TestDefaultRenewalDate(t *testing.T) {
	assert.Equal(t, today.AddDate(0, 0, 21), DefaultRenewalDate(fixedNow))
}

func TestRenew_Scenario(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	inst := store.add(today.AddDate(0, 0, 5))
	ctx := context.Background()

	updated, err := svc.Renew(ctx, inst.ID, today.AddDate(0, 0, 21), librarian)
	require.NoError(t, err)
	assert.Equal(t, today.AddDate(0, 0, 21), *updated.DueBack)
	assert.Equal(t, 1, store.writes)

	_, err = svc.Renew(ctx, inst.ID, today.AddDate(0, 0, -1), librarian)
	var dateErr *InvalidDateError
	require.ErrorAs(t, err, &dateErr)
	assert.Equal(t, ReasonInPast, dateErr.Reason)
	assert.Equal(t, "Invalid date - renewal in past", err.Error())

	_, err = svc.Renew(ctx, inst.ID, today.AddDate(0, 0, 35), librarian)
	require.ErrorAs(t, err, &dateErr)
	assert.Equal(t, ReasonTooFarAhead, dateErr.Reason)
	assert.Equal(t, "Invalid date - renewal more than 4 weeks ahead", err.Error())

	assert.Equal(t, 1, store.writes)
	assert.Equal(t, today.AddDate(0, 0, 21), *store.instances[inst.ID].DueBack)
}

func TestRenew_DateWindow(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	inst := store.add(today)

	for offset := -3; offset <= 31; offset++ {
		proposed := today.AddDate(0, 0, offset)
		_, err := svc.Renew(context.Background(), inst.ID, proposed, librarian)
		if offset >= 0 && offset <= 28 {
			assert.NoError(t, err, "offset %d should be accepted", offset)
		} else {
			assert.True(t, IsInvalidDate(err), "offset %d should be rejected", offset)
		}
	}
	assert.Equal(t, 29, store.writes)
}

func TestRenew_TimeOfDayIgnored(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	inst := store.add(today)

	lateToday := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	_, err := svc.Renew(context.Background(), inst.ID, lateToday, librarian)
	require.NoError(t, err)
	assert.Equal(t, today, *store.instances[inst.ID].DueBack)

	lastDay := time.Date(2024, 4, 7, 23, 0, 0, 0, time.UTC)
	_, err = svc.Renew(context.Background(), inst.ID, lastDay, librarian)
	assert.NoError(t, err)
}

func TestRenew_NotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	for _, actor := range []*entities.User{librarian, member, nil} {
		_, err := svc.Renew(context.Background(), uuid.New(), today, actor)
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func TestRenew_Forbidden(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	inst := store.add(today.AddDate(0, 0, 5))

	_, err := svc.Renew(context.Background(), inst.ID, today.AddDate(0, 0, 7), member)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Renew(context.Background(), inst.ID, today.AddDate(0, 0, 7), nil)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, 0, store.writes)
	assert.Equal(t, today.AddDate(0, 0, 5), *store.instances[inst.ID].DueBack)
}

func TestRenew_AdminImpliesPermission(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	inst := store.add(today)

	_, err := svc.Renew(context.Background(), inst.ID, today.AddDate(0, 0, 7), &entities.User{Role: entities.UserRoleAdmin})
	assert.NoError(t, err)
}

func TestRenew_PersistenceErrorSurfaces(t *testing.T) {
	store := newFakeStore()
	store.updateErr = errors.New("database is locked")
	svc := newTestService(store)
	inst := store.add(today)

	_, err := svc.Renew(context.Background(), inst.ID, today.AddDate(0, 0, 7), librarian)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.False(t, IsInvalidDate(err))
}

func TestRenew_CancelledContext(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	inst := store.add(today)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Renew(ctx, inst.ID, today.AddDate(0, 0, 7), librarian)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.writes)
}

func TestService_TodayUsesLocation(t *testing.T) {
	// 23:30 UTC is already the next day in Tokyo.
	now := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*60*60)
	svc := NewService(newFakeStore(), func() time.Time { return now }, tokyo)

	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), svc.Today())
}

func TestRenew_WithLoansRepository(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "renew.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Author{}, &entities.Book{}, &entities.BookInstance{}))

	author := &entities.Author{FirstName: "John", LastName: "Smith"}
	require.NoError(t, db.Create(author).Error)
	book := &entities.Book{Title: "Book Title", AuthorID: author.ID}
	require.NoError(t, db.Create(book).Error)
	due := today.AddDate(0, 0, 5)
	inst := &entities.BookInstance{BookID: book.ID, Status: entities.LoanStatusOnLoan, DueBack: &due}
	require.NoError(t, db.Create(inst).Error)

	repo := loans.NewRepository(db)
	svc := newTestService(repo)

	_, err = svc.Renew(context.Background(), inst.ID, today.AddDate(0, 0, 35), librarian)
	require.True(t, IsInvalidDate(err))

	updated, err := svc.Renew(context.Background(), inst.ID, today.AddDate(0, 0, 21), librarian)
	require.NoError(t, err)
	assert.Equal(t, "Book Title", updated.Book.Title)

	reloaded, err := repo.GetInstance(inst.ID)
	require.NoError(t, err)
	assert.Equal(t, today.AddDate(0, 0, 21).Format(entities.DateLayout), entities.FormatDate(reloaded.DueBack))

	_, err = svc.Renew(context.Background(), uuid.New(), today, librarian)
	assert.ErrorIs(t, err, ErrNotFound)
}
