package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/catalog-backend/internal/models"
	"github.com/ignatzorin/catalog-backend/internal/pkg/apperror"
	"github.com/ignatzorin/catalog-backend/internal/repository/common"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// memStore - хранилище в памяти с поведением настоящего репозитория.
type memStore struct {
	catalogs   map[int64]models.Catalog
	categories []models.Category
	merges     int
}

func newMemStore() *memStore {
	return &memStore{catalogs: make(map[int64]models.Catalog)}
}

func (s *memStore) addCatalog(id int64, name string) {
	s.catalogs[id] = models.Catalog{ID: id, Name: name}
}

func (s *memStore) addCategory(c models.Category) {
	s.categories = append(s.categories, c)
}

func (s *memStore) roots(catalogID int64) []models.Category {
	var out []models.Category
	for _, c := range s.categories {
		if c.CatalogID == catalogID && c.ParentID == nil {
			out = append(out, c)
		}
	}
	return out
}

func (s *memStore) FindByID(_ context.Context, id int64) (*models.Catalog, error) {
	c, ok := s.catalogs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c.RootCategories = s.roots(id)
	return &c, nil
}

func (s *memStore) FindAll(_ context.Context, page models.Page) ([]models.Catalog, error) {
	ids := make([]int64, 0, len(s.catalogs))
	for id := range s.catalogs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.Catalog, 0, len(ids))
	for _, id := range ids {
		c := s.catalogs[id]
		c.RootCategories = s.roots(id)
		out = append(out, c)
	}
	return paginate(out, page), nil
}

func (s *memStore) Merge(ctx context.Context, catalog *models.Catalog) (*models.Catalog, error) {
	stored, ok := s.catalogs[catalog.ID]
	if !ok {
		return nil, common.ErrNotFound
	}
	stored.Name = catalog.Name
	stored.Description = catalog.Description
	s.catalogs[catalog.ID] = stored
	s.merges++
	return s.FindByID(ctx, catalog.ID)
}

func (s *memStore) FindCategories(_ context.Context, catalogID int64) ([]models.Category, error) {
	var out []models.Category
	for _, c := range s.categories {
		if c.CatalogID == catalogID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) CatalogExists(_ context.Context, id int64) (bool, error) {
	_, ok := s.catalogs[id]
	return ok, nil
}

type mockCatalogStore struct {
	mock.Mock
}

func (m *mockCatalogStore) FindByID(ctx context.Context, id int64) (*models.Catalog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Catalog), args.Error(1)
}

func (m *mockCatalogStore) FindAll(ctx context.Context, page models.Page) ([]models.Catalog, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Catalog), args.Error(1)
}

func (m *mockCatalogStore) Merge(ctx context.Context, catalog *models.Catalog) (*models.Catalog, error) {
	args := m.Called(ctx, catalog)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Catalog), args.Error(1)
}

func (m *mockCatalogStore) FindCategories(ctx context.Context, catalogID int64) ([]models.Category, error) {
	args := m.Called(ctx, catalogID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *mockCatalogStore) CatalogExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) BroadcastToCatalog(catalogID int64, event string, data any) error {
	args := m.Called(catalogID, event, data)
	return args.Error(0)
}

func newTestService(store CatalogStore, policy VisibilityPolicy) *CatalogService {
	svc := NewCatalogService(store, policy)
	svc.now = func() time.Time { return testNow }
	return svc
}

// fixtureStore: каталог 1 со смешанной видимостью, 2 пустой, 3 только со скрытыми корнями.
func fixtureStore() *memStore {
	s := newMemStore()
	s.addCatalog(1, "Одежда")
	s.addCatalog(2, "Пустой")
	s.addCatalog(3, "Архив")

	s.addCategory(models.Category{ID: 10, CatalogID: 1, Name: "Куртки"})
	s.addCategory(models.Category{ID: 11, CatalogID: 1, Name: "Выключенная", Disabled: true})
	s.addCategory(models.Category{ID: 12, CatalogID: 1, Name: "Прошлогодняя", EndDate: ptr(testNow.AddDate(0, 0, -1))})
	s.addCategory(models.Category{ID: 13, CatalogID: 1, Name: "Будущая", StartDate: ptr(testNow.Add(time.Hour))})
	s.addCategory(models.Category{ID: 14, CatalogID: 1, ParentID: ptr(int64(10)), Name: "Пуховики"})
	s.addCategory(models.Category{ID: 15, CatalogID: 1, ParentID: ptr(int64(10)), Name: "Скрытые", Disabled: true})
	s.addCategory(models.Category{ID: 16, CatalogID: 1, ParentID: ptr(int64(14)), Name: "Длинные"})

	s.addCategory(models.Category{ID: 30, CatalogID: 3, Name: "Старьё", Disabled: true})
	return s
}

func categoryIDs(categories []models.Category) []int64 {
	ids := make([]int64, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestCatalogService_Find_UnknownID(t *testing.T) {
	svc := newTestService(fixtureStore(), VisibilityRoots)

	_, err := svc.Find(context.Background(), 9999, nil)

	assert.True(t, apperror.IsNotFound(err))
}

func TestCatalogService_Find_ComputesVisibility(t *testing.T) {
	svc := newTestService(fixtureStore(), VisibilityRoots)
	ctx := context.Background()

	catalog, err := svc.Find(ctx, 1, nil)
	require.NoError(t, err)
	assert.True(t, catalog.Visible)
	assert.Equal(t, []int64{10}, categoryIDs(catalog.RootCategories))
	assert.Empty(t, catalog.RootCategories[0].Children)

	empty, err := svc.Find(ctx, 2, nil)
	require.NoError(t, err)
	assert.False(t, empty.Visible)

	hidden, err := svc.Find(ctx, 3, nil)
	require.NoError(t, err)
	assert.False(t, hidden.Visible)
	assert.Empty(t, hidden.RootCategories)
}

func TestCatalogService_Find_ExistsPolicy(t *testing.T) {
	svc := newTestService(fixtureStore(), VisibilityExists)

	catalog, err := svc.Find(context.Background(), 2, nil)

	require.NoError(t, err)
	assert.True(t, catalog.Visible)
}

func TestCatalogService_Find_FilterPolicyHidesCatalog(t *testing.T) {
	svc := newTestService(fixtureStore(), VisibilityFilter)

	_, err := svc.Find(context.Background(), 3, nil)
	assert.True(t, apperror.IsNotFound(err))

	catalog, err := svc.Find(WithPrivilege(context.Background()), 3, nil)
	require.NoError(t, err)
	assert.False(t, catalog.Visible)
	assert.Equal(t, []int64{30}, categoryIDs(catalog.RootCategories))
}

func TestCatalogService_Find_Depth(t *testing.T) {
	svc := newTestService(fixtureStore(), VisibilityRoots)
	ctx := context.Background()

	one, err := svc.Find(ctx, 1, ptr(1))
	require.NoError(t, err)
	require.Len(t, one.RootCategories, 1)
	jackets := one.RootCategories[0]
	assert.Equal(t, []int64{14}, categoryIDs(jackets.Children))
	assert.Empty(t, jackets.Children[0].Children)

	two, err := svc.Find(ctx, 1, ptr(2))
	require.NoError(t, err)
	assert.Equal(t, []int64{16}, categoryIDs(two.RootCategories[0].Children[0].Children))

	_, err = svc.Find(ctx, 1, ptr(-1))
	assert.True(t, apperror.IsValidation(err))
}

func TestCatalogService_FindAll_Empty(t *testing.T) {
	svc := newTestService(newMemStore(), VisibilityRoots)

	catalogs, err := svc.FindAll(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.NotNil(t, catalogs)
	assert.Empty(t, catalogs)
}

func TestCatalogService_FindAll_Pagination(t *testing.T) {
	svc := newTestService(fixtureStore(), VisibilityRoots)
	ctx := context.Background()

	all, err := svc.FindAll(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := svc.FindAll(ctx, ptr(1), ptr(1))
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(2), page[0].ID)

	tail, err := svc.FindAll(ctx, ptr(10), nil)
	require.NoError(t, err)
	assert.Empty(t, tail)

	_, err = svc.FindAll(ctx, ptr(-1), nil)
	assert.True(t, apperror.IsValidation(err))
	_, err = svc.FindAll(ctx, nil, ptr(-5))
	assert.True(t, apperror.IsValidation(err))
}

func TestCatalogService_FindAll_FilterPolicyPaginatesVisibleOnly(t *testing.T) {
	store := fixtureStore()
	store.addCatalog(4, "Обувь")
	store.addCategory(models.Category{ID: 40, CatalogID: 4, Name: "Кеды"})
	svc := newTestService(store, VisibilityFilter)
	ctx := context.Background()

	visible, err := svc.FindAll(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, int64(1), visible[0].ID)
	assert.Equal(t, int64(4), visible[1].ID)

	second, err := svc.FindAll(ctx, ptr(1), ptr(1))
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, int64(4), second[0].ID)

	tail, err := svc.FindAll(ctx, ptr(1), ptr(math.MaxInt))
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, int64(4), tail[0].ID)

	admin, err := svc.FindAll(WithPrivilege(ctx), nil, nil)
	require.NoError(t, err)
	assert.Len(t, admin, 4)
}

func TestCatalogService_FindCategories(t *testing.T) {
	svc := newTestService(fixtureStore(), VisibilityRoots)
	ctx := context.Background()

	roots, err := svc.FindCategories(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, categoryIDs(roots))

	nested, err := svc.FindCategories(ctx, 1, ptr(1))
	require.NoError(t, err)
	assert.Equal(t, []int64{14}, categoryIDs(nested[0].Children))

	empty, err := svc.FindCategories(ctx, 2, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.FindCategories(ctx, 9999, nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCatalogService_FindCategories_Privileged(t *testing.T) {
	svc := newTestService(fixtureStore(), VisibilityRoots)

	roots, err := svc.FindCategories(WithPrivilege(context.Background()), 1, ptr(1))

	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12, 13}, categoryIDs(roots))
	assert.Equal(t, []int64{14, 15}, categoryIDs(roots[0].Children))
}

func TestCatalogService_FindCategories_ExpiryBoundary(t *testing.T) {
	store := newMemStore()
	store.addCatalog(1, "Граница")
	store.addCategory(models.Category{ID: 1, CatalogID: 1, Name: "Кончилась", EndDate: ptr(testNow)})
	store.addCategory(models.Category{ID: 2, CatalogID: 1, Name: "Началась", StartDate: ptr(testNow)})
	svc := newTestService(store, VisibilityRoots)

	roots, err := svc.FindCategories(context.Background(), 1, nil)

	require.NoError(t, err)
	assert.Equal(t, []int64{2}, categoryIDs(roots))
}

func TestCatalogService_Modify_PreservesRootCategories(t *testing.T) {
	store := fixtureStore()
	svc := newTestService(store, VisibilityRoots)
	ctx := WithPrivilege(context.Background())

	before, err := svc.FindCategories(ctx, 1, nil)
	require.NoError(t, err)

	modified, err := svc.Modify(ctx, ModifyCatalogInput{ID: 1, Name: ptr("Верхняя одежда"), Description: ptr("Сезон 2026")})
	require.NoError(t, err)
	assert.Equal(t, "Верхняя одежда", modified.Name)
	require.NotNil(t, modified.Description)
	assert.Equal(t, "Сезон 2026", *modified.Description)

	after, err := svc.FindCategories(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, categoryIDs(before), categoryIDs(after))
	assert.Equal(t, categoryIDs(before), categoryIDs(modified.RootCategories))
}

func TestCatalogService_Modify_RoundTripAndIdempotence(t *testing.T) {
	store := fixtureStore()
	svc := newTestService(store, VisibilityRoots)
	ctx := context.Background()
	input := ModifyCatalogInput{ID: 1, Name: ptr("Новая")}

	first, err := svc.Modify(ctx, input)
	require.NoError(t, err)
	second, err := svc.Modify(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	found, err := svc.Find(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "Новая", found.Name)
	assert.Equal(t, 2, store.merges)
}

func TestCatalogService_Modify_Validation(t *testing.T) {
	store := fixtureStore()
	svc := newTestService(store, VisibilityRoots)
	ctx := context.Background()

	_, err := svc.Modify(ctx, ModifyCatalogInput{Name: ptr("Без id")})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Modify(ctx, ModifyCatalogInput{ID: 1, Name: ptr("   ")})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Modify(ctx, ModifyCatalogInput{ID: 9999, Name: ptr("Нет такого")})
	assert.True(t, apperror.IsNotFound(err))

	assert.Zero(t, store.merges)
}

func TestCatalogService_Modify_Notifies(t *testing.T) {
	svc := newTestService(fixtureStore(), VisibilityRoots)
	notifier := new(mockNotifier)
	svc.SetNotifier(notifier)

	notifier.On("BroadcastToCatalog", int64(1), EventCatalogModified, mock.Anything).Return(errors.New("hub closed"))

	_, err := svc.Modify(context.Background(), ModifyCatalogInput{ID: 1, Description: ptr("x")})

	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestCatalogService_StoreFailureIsDatabaseError(t *testing.T) {
	store := new(mockCatalogStore)
	svc := newTestService(store, VisibilityRoots)
	ctx := context.Background()
	boom := errors.New("connection reset")

	store.On("FindByID", ctx, int64(1)).Return(nil, boom)
	store.On("FindAll", ctx, models.Page{}).Return(nil, boom)
	store.On("CatalogExists", ctx, int64(1)).Return(false, boom)

	assertDatabaseError := func(err error) {
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.ErrCodeDatabaseError, appErr.Code)
		assert.ErrorIs(t, err, boom)
	}

	_, err := svc.Find(ctx, 1, nil)
	assertDatabaseError(err)
	_, err = svc.FindAll(ctx, nil, nil)
	assertDatabaseError(err)
	_, err = svc.FindCategories(ctx, 1, nil)
	assertDatabaseError(err)
	_, err = svc.Modify(ctx, ModifyCatalogInput{ID: 1, Name: ptr("x")})
	assertDatabaseError(err)

	store.AssertNotCalled(t, "Merge", mock.Anything, mock.Anything)
}

func TestCatalogService_MergeFailureIsDatabaseError(t *testing.T) {
	store := new(mockCatalogStore)
	svc := newTestService(store, VisibilityRoots)
	ctx := context.Background()

	store.On("FindByID", ctx, int64(1)).Return(&models.Catalog{ID: 1, Name: "Одежда"}, nil)
	store.On("Merge", ctx, mock.AnythingOfType("*models.Catalog")).Return(nil, errors.New("deadlock"))

	_, err := svc.Modify(ctx, ModifyCatalogInput{ID: 1, Name: ptr("Новая")})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeDatabaseError, appErr.Code)
}

func TestParseVisibilityPolicy(t *testing.T) {
	p, err := ParseVisibilityPolicy("")
	require.NoError(t, err)
	assert.Equal(t, VisibilityRoots, p)

	p, err = ParseVisibilityPolicy(" FILTER ")
	require.NoError(t, err)
	assert.Equal(t, VisibilityFilter, p)

	_, err = ParseVisibilityPolicy("everything")
	assert.Error(t, err)
}
