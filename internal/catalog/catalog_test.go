// internal/catalog/catalog_test.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-estimate-workers/internal/common/cache"
	"tour-estimate-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

var columns = []string{
	"id", "name_ko", "name_en", "item_type", "region",
	"latitude", "longitude", "price", "image_url", "tags", "auto_suggest",
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func palaceRows() *sqlmock.Rows {
	return sqlmock.NewRows(columns).
		AddRow(101, "경복궁", "Gyeongbokgung Palace", "attraction", "seoul", 37.5796, 126.9770, 3000, "", "{history,palace}", true).
		AddRow(102, "창덕궁", "Changdeokgung Palace", "attraction", "", 37.5794, 126.9910, 3000, "", "{history}", true)
}

// ==========================
// PostgresCatalog
// ==========================

func TestPostgresCatalog_FindByIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	c := NewPostgresCatalog(db, 0)

	mock.ExpectQuery(`FROM catalog_items c\s+WHERE c.id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(palaceRows())

	got, err := c.FindByIDs(context.Background(), []int64{101, 102, 999})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Gyeongbokgung Palace", got[101].NameEn)
	assert.Equal(t, []string{"history", "palace"}, got[101].Tags)
	assert.Equal(t, "", got[102].Region)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalog_FindByIDs_EmptySkipsQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	c := NewPostgresCatalog(db, 0)

	got, err := c.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalog_FindByNames_SingleBatchedQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	c := NewPostgresCatalog(db, 0.25)

	mock.ExpectQuery(`JOIN unnest\(\$1::text\[\]\) AS q\(n\)`).
		WithArgs(sqlmock.AnyArg(), 0.25, sqlmock.AnyArg()).
		WillReturnRows(palaceRows())

	got, err := c.FindByNames(context.Background(),
		[]string{"Gyeongbokgung", " ", "Changdeok palace", "Gyeongbokgung"},
		[]string{"seoul", "서울"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalog_FindByNames_QueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	c := NewPostgresCatalog(db, 0)

	mock.ExpectQuery(`FROM catalog_items`).WillReturnError(errors.New("relation does not exist"))

	_, err := c.FindByNames(context.Background(), []string{"x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog find by names")
}

func TestPostgresCatalog_FindIneligible(t *testing.T) {
	db, mock := setupMockDB(t)
	c := NewPostgresCatalog(db, 0)

	mock.ExpectQuery(`JOIN catalog_items c ON NOT c.auto_suggest`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow("Private Driver"))

	got, err := c.FindIneligible(context.Background(), []string{"Private Driver", "Day 2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"Private Driver": {}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// CachedLookup
// ==========================

type fakeLookup struct {
	byIDsCalls   [][]int64
	byNamesCalls int
	entries      map[int64]models.CatalogEntry
}

func (f *fakeLookup) FindByIDs(_ context.Context, ids []int64) (map[int64]models.CatalogEntry, error) {
	f.byIDsCalls = append(f.byIDsCalls, ids)
	out := map[int64]models.CatalogEntry{}
	for _, id := range ids {
		if e, ok := f.entries[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (f *fakeLookup) FindByNames(context.Context, []string, []string) ([]models.CatalogEntry, error) {
	f.byNamesCalls++
	return []models.CatalogEntry{f.entries[1]}, nil
}

func (f *fakeLookup) FindIneligible(context.Context, []string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func TestCachedLookup_FindByIDs_LoadsOnlyMissing(t *testing.T) {
	next := &fakeLookup{entries: map[int64]models.CatalogEntry{
		1: {ID: 1, NameEn: "N Seoul Tower"},
		2: {ID: 2, NameEn: "Bukchon Hanok Village"},
	}}
	l := NewCachedLookup(next, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)
	ctx := context.Background()

	_, err := l.FindByIDs(ctx, []int64{1})
	require.NoError(t, err)
	got, err := l.FindByIDs(ctx, []int64{1, 2})
	require.NoError(t, err)

	assert.Len(t, got, 2)
	require.Len(t, next.byIDsCalls, 2)
	assert.Equal(t, []int64{2}, next.byIDsCalls[1])
}

func TestCachedLookup_FindByNames_OrderInsensitiveKeyAndInvalidate(t *testing.T) {
	next := &fakeLookup{entries: map[int64]models.CatalogEntry{1: {ID: 1, NameEn: "N Seoul Tower"}}}
	l := NewCachedLookup(next, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)
	ctx := context.Background()

	_, err := l.FindByNames(ctx, []string{"a", "b"}, []string{"seoul"})
	require.NoError(t, err)
	_, err = l.FindByNames(ctx, []string{"b", "a"}, []string{"seoul"})
	require.NoError(t, err)
	assert.Equal(t, 1, next.byNamesCalls)

	n, err := l.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = l.FindByNames(ctx, []string{"a", "b"}, []string{"seoul"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.byNamesCalls)
}
