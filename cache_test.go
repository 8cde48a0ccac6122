package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

const (
	widgetKey    = "service:widgets_test|Widgets|widget_id=1"
	ownerKey     = "service:widgets_test|Widgets|owner_id=7"
	ownerPageKey = ownerKey + "|limit=10|offset=0"
	ownerMetaKey = ownerKey + cacheKeyListCachedSelectAll
)

func newCachedStorage(t *testing.T) (*storage, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	s, err := New(&Config{
		WriteOnlyDbConn: sqlx.NewDb(conn, "postgres"),
		Redis:           rdb,
		Tables:          []*Table{widgetsTable()},
		ServiceName:     "widgets_test",
		DefaultTTL:      60,
	})
	require.NoError(t, err)
	return s.(*storage), mock, mr
}

func ownerRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"widget_id", "owner_id", "label", "created_at"}).
		AddRow(int64(2), int64(7), "second", now).
		AddRow(int64(1), int64(7), "first", now.Add(-time.Minute))
}

func expectOwnerPage(mock sqlmock.Sqlmock, now time.Time) {
	mock.ExpectQuery(regexp.QuoteMeta("order by created_at desc LIMIT $2 OFFSET $3")).
		WithArgs(7, 10, 0).
		WillReturnRows(ownerRows(now))
}

func selectOwnerPage(t *testing.T, s Storage) []Widgets {
	t.Helper()
	var widgets []Widgets
	require.NoError(t, s.SelectAll(context.Background(), &Widgets{OwnerID: 7}, &widgets, "WidgetsGetByOwnerID", &SelectOptions{Limit: 10}))
	return widgets
}

func TestCache_SelectServedFromCache(t *testing.T) {
	t.Parallel()
	s, mock, mr := newCachedStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("select * from widgets where widget_id=")).
		WithArgs(1).
		WillReturnRows(widgetRows(time.Now()))

	w := &Widgets{WidgetID: 1}
	require.NoError(t, s.Select(context.Background(), w, "WidgetsGetByID"))
	require.True(t, mr.Exists(widgetKey))

	// no second query is expected; sqlmock fails the select if it reaches the database
	cached := &Widgets{WidgetID: 1}
	require.NoError(t, s.Select(context.Background(), cached, "WidgetsGetByID"))
	require.Equal(t, "first", cached.Label)
	require.Equal(t, int32(7), cached.OwnerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_SelectAllPagesAreTracked(t *testing.T) {
	t.Parallel()
	s, mock, mr := newCachedStorage(t)

	expectOwnerPage(mock, time.Now())
	require.Len(t, selectOwnerPage(t, s), 2)

	require.True(t, mr.Exists(ownerPageKey))
	pages, err := mr.List(ownerMetaKey)
	require.NoError(t, err)
	require.Equal(t, []string{ownerPageKey}, pages)

	// the second read comes from redis and the page is only tracked once
	widgets := selectOwnerPage(t, s)
	require.Len(t, widgets, 2)
	require.Equal(t, int32(2), widgets[0].WidgetID)
	pages, err = mr.List(ownerMetaKey)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_PageMissWithoutMetadata(t *testing.T) {
	t.Parallel()
	s, mock, mr := newCachedStorage(t)
	now := time.Now()

	expectOwnerPage(mock, now)
	selectOwnerPage(t, s)

	mr.Del(ownerMetaKey)
	require.True(t, mr.Exists(ownerPageKey))

	objMap := map[string]interface{}{"owner_id": int32(7)}
	var dest []Widgets
	err := s.cache.getList(context.Background(), s.queries["WidgetsGetByOwnerID"], objMap, &dest, &SelectOptions{Limit: 10})
	require.ErrorIs(t, err, redis.Nil)

	expectOwnerPage(mock, now)
	require.Len(t, selectOwnerPage(t, s), 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_InsertBatchClearsPages(t *testing.T) {
	t.Parallel()
	s, mock, mr := newCachedStorage(t)
	now := time.Now()

	expectOwnerPage(mock, now)
	selectOwnerPage(t, s)
	require.True(t, mr.Exists(ownerPageKey))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO widgets")).
		WithArgs(7, "third").
		WillReturnRows(sqlmock.NewRows([]string{"widget_id", "owner_id", "label", "created_at"}).
			AddRow(int64(3), int64(7), "third", now))
	mock.ExpectCommit()

	require.NoError(t, s.InsertBatch(context.Background(), &Widgets{OwnerID: 7, Label: "third"}))

	require.False(t, mr.Exists(ownerPageKey))
	require.False(t, mr.Exists(ownerMetaKey))
	require.True(t, mr.Exists("service:widgets_test|Widgets|widget_id=3"))

	// the next read goes back to the database
	expectOwnerPage(mock, now)
	selectOwnerPage(t, s)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_TXEndAppliesActionsAfterCommit(t *testing.T) {
	t.Parallel()
	s, mock, mr := newCachedStorage(t)
	now := time.Now()
	ctx := context.Background()

	expectOwnerPage(mock, now)
	selectOwnerPage(t, s)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE widgets SET label=")).
		WithArgs("renamed", 1).
		WillReturnRows(sqlmock.NewRows([]string{"widget_id", "owner_id", "label", "created_at"}).
			AddRow(int64(1), int64(7), "renamed", now))
	mock.ExpectCommit()

	tx, err := s.TXBegin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.TXUpdate(ctx, &Widgets{WidgetID: 1, Label: "renamed"}))

	// nothing is touched before the commit
	require.True(t, mr.Exists(ownerPageKey))
	require.False(t, mr.Exists(widgetKey))

	require.NoError(t, tx.TXEnd(ctx))
	require.False(t, mr.Exists(ownerPageKey))
	require.False(t, mr.Exists(ownerMetaKey))

	w := &Widgets{WidgetID: 1}
	require.NoError(t, s.Select(ctx, w, "WidgetsGetByID"))
	require.Equal(t, "renamed", w.Label)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_RollbackLeavesCache(t *testing.T) {
	t.Parallel()
	s, mock, mr := newCachedStorage(t)
	ctx := context.Background()

	expectOwnerPage(mock, time.Now())
	selectOwnerPage(t, s)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO widgets")).
		WithArgs(7, "third").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := s.InsertBatch(ctx, &Widgets{OwnerID: 7, Label: "third"})
	require.Error(t, err)
	require.True(t, mr.Exists(ownerPageKey))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_DeleteKeys(t *testing.T) {
	t.Parallel()
	s, mock, mr := newCachedStorage(t)

	expectOwnerPage(mock, time.Now())
	selectOwnerPage(t, s)
	require.NoError(t, mr.Set(widgetKey, `{"widget_id":1}`))

	require.NoError(t, s.DeleteKeys(context.Background(), &Widgets{WidgetID: 1, OwnerID: 7}))
	require.False(t, mr.Exists(widgetKey))
	require.False(t, mr.Exists(ownerPageKey))
	require.False(t, mr.Exists(ownerMetaKey))
	require.NoError(t, mock.ExpectationsWereMet())
}
