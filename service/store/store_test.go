package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	storage "github.com/osr-alliance/backend-lead-intake"
	"github.com/stretchr/testify/require"
)

var leadColumns = []string{
	"lead_id", "user_id", "name", "email", "phone", "company", "position", "status", "notes", "custom_data", "created_at",
}

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	dbx := sqlx.NewDb(conn, "postgres")
	s, err := New(&Config{
		ReadConn:      dbx,
		WriteConn:     dbx,
		DoNotUseCache: true,
	})
	require.NoError(t, err)
	return s, mock
}

func TestStore_InsertLeads(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO leads")).
		WithArgs(42, "Jane Doe", "jane@x.com", "", "", "", "", "", `{"Custom Field":"VIP"}`).
		WillReturnRows(sqlmock.NewRows(leadColumns).
			AddRow(int64(1), int64(42), "Jane Doe", "jane@x.com", nil, nil, nil, "new", nil, []byte(`{"Custom Field":"VIP"}`), now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO leads")).
		WithArgs(42, "Unknown Name", "solo@x.com", "", "", "", "", "", "{}").
		WillReturnRows(sqlmock.NewRows(leadColumns).
			AddRow(int64(2), int64(42), "Unknown Name", "solo@x.com", nil, nil, nil, "new", nil, []byte(`{}`), now))
	mock.ExpectCommit()

	leads := []*Leads{
		{UserID: 42, Name: "Jane Doe", Email: "jane@x.com", CustomData: CustomData{"Custom Field": "VIP"}},
		{UserID: 42, Name: "Unknown Name", Email: "solo@x.com"},
	}
	require.NoError(t, s.InsertLeads(context.Background(), leads))

	require.Equal(t, int32(1), leads[0].LeadID)
	require.Equal(t, LeadStatusNew, leads[0].Status)
	require.Equal(t, CustomData{"Custom Field": "VIP"}, leads[0].CustomData)
	require.Equal(t, now, leads[0].CreatedAt)
	require.Equal(t, int32(2), leads[1].LeadID)
	require.Nil(t, leads[1].CustomData)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertLeads_FailureRollsBack(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO leads")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.InsertLeads(context.Background(), []*Leads{{UserID: 1, Name: "A"}})
	require.ErrorContains(t, err, "inserting 1 leads")
	require.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetLeadByID(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("select * from leads where lead_id=")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(leadColumns).
			AddRow(int64(7), int64(42), "Ada Lovelace", nil, []byte("555"), nil, nil, "new", nil, []byte(`{"Source":"Web"}`), now))
	mock.ExpectQuery(regexp.QuoteMeta("select * from leads where lead_id=")).
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows(leadColumns))

	lead, err := s.GetLeadByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", lead.Name)
	require.Equal(t, "", lead.Email)
	require.Equal(t, "555", lead.Phone)
	require.Equal(t, CustomData{"Source": "Web"}, lead.CustomData)

	_, err = s.GetLeadByID(context.Background(), 8)
	require.ErrorIs(t, err, ErrLeadNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetLeadsByUserID(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("order by created_at desc, lead_id desc LIMIT")).
		WithArgs(42, 25, 0).
		WillReturnRows(sqlmock.NewRows(leadColumns).
			AddRow(int64(2), int64(42), "B", nil, nil, nil, nil, "new", nil, []byte(`{}`), now).
			AddRow(int64(1), int64(42), "A", nil, nil, nil, nil, "contacted", nil, []byte(`{}`), now.Add(-time.Hour)))

	leads, err := s.GetLeadsByUserID(context.Background(), 42, &storage.SelectOptions{Limit: 25})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	require.Equal(t, "B", leads[0].Name)
	require.Equal(t, LeadStatusContacted, leads[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateLeadCallOutcome(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("select * from leads where lead_id=")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(leadColumns).
			AddRow(int64(7), int64(42), "Ada", nil, nil, nil, nil, "calling", nil, []byte(`{}`), now))
	mock.ExpectQuery(regexp.QuoteMeta("update leads set status=")).
		WithArgs(LeadStatusQualified, "wants a demo", 7).
		WillReturnRows(sqlmock.NewRows(leadColumns).
			AddRow(int64(7), int64(42), "Ada", nil, nil, nil, nil, "qualified", "wants a demo", []byte(`{}`), now))

	lead, err := s.UpdateLeadCallOutcome(context.Background(), 7, LeadStatusQualified, "wants a demo")
	require.NoError(t, err)
	require.Equal(t, LeadStatusQualified, lead.Status)
	require.Equal(t, "wants a demo", lead.Notes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomData_ValueAndScan(t *testing.T) {
	t.Parallel()

	v, err := CustomData(nil).Value()
	require.NoError(t, err)
	require.Equal(t, "{}", v)

	var c CustomData
	require.NoError(t, c.Scan([]byte(`{"a":"b"}`)))
	require.Equal(t, CustomData{"a": "b"}, c)
	require.NoError(t, c.Scan(nil))
	require.Nil(t, c)
	require.Error(t, c.Scan(12))
	require.Error(t, c.Scan("not json"))
}
