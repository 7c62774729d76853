package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/coworking-booking/internal/booking"
	"github.com/iliyamo/coworking-booking/internal/model"
)

var (
	lockResourceSQL = regexp.QuoteMeta("FROM resources WHERE id=? FOR UPDATE")
	overlapSQL      = regexp.QuoteMeta("FROM reservations WHERE resource_id = ? AND status IN (?, ?, ?) AND start_at < ? AND end_at > ?")
	insertSQL       = regexp.QuoteMeta("INSERT INTO reservations")
	byIDSQL         = regexp.QuoteMeta("FROM reservations WHERE id=?")
	transitionSQL   = regexp.QuoteMeta("UPDATE reservations SET status = ?, updated_at = ?, check_in_at = ? WHERE id = ? AND status = ?")
)

func newMockStore(t *testing.T) (*BookingStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBookingStore(sqlx.NewDb(db, "mysql")), mock
}

func resourceRows(id uint64, quantity int) *sqlmock.Rows {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "name", "price_per_hour", "quantity", "open_time", "close_time", "is_archived", "created_at", "updated_at"}).
		AddRow(int64(id), "Single Pod", "45000.00", int64(quantity), "08:00:00", "20:00:00", false, created, created)
}

func reservationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "resource_id", "user_id", "guest_id", "start_at", "end_at", "status", "price",
		"check_in_at", "check_out_at", "cancelled_at", "created_at", "updated_at"})
}

func addReservation(rows *sqlmock.Rows, id int64, start time.Time, status model.ReservationStatus) *sqlmock.Rows {
	return rows.AddRow(id, int64(2), int64(9), nil, start, start.Add(time.Hour), string(status), "45000.00",
		nil, nil, nil, start.Add(-24*time.Hour), start.Add(-24*time.Hour))
}

func TestBookingStore_InsertRollsBackWhenAdmissionFails(t *testing.T) {
	s, mock := newMockStore(t)
	start := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(lockResourceSQL).WillReturnRows(resourceRows(2, 1))
	mock.ExpectQuery(overlapSQL).WillReturnRows(addReservation(reservationRows(), 7, start, model.StatusConfirmed))
	mock.ExpectRollback()

	var seen []model.Reservation
	admit := func(r model.Resource, overlapping []model.Reservation) error {
		seen = overlapping
		peak := booking.PeakConcurrency(overlapping, start, start.Add(time.Hour))
		if peak >= r.Quantity {
			return &booking.CapacityConflictError{ResourceID: r.ID, Peak: peak, Quantity: r.Quantity}
		}
		return nil
	}
	_, err := s.InsertReservation(context.Background(), model.Reservation{
		ResourceID: 2, Holder: model.UserHolder(1), StartAt: start, EndAt: start.Add(time.Hour), Status: model.StatusConfirmed,
	}, admit)

	assert.ErrorIs(t, err, booking.ErrCapacityConflict)
	require.Len(t, seen, 1)
	assert.Equal(t, uint64(7), seen[0].ID)
	// No INSERT was issued and the transaction was rolled back.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_InsertCommitsWhenAdmitted(t *testing.T) {
	s, mock := newMockStore(t)
	start := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(lockResourceSQL).WillReturnRows(resourceRows(2, 1))
	mock.ExpectQuery(overlapSQL).WillReturnRows(reservationRows())
	mock.ExpectExec(insertSQL).WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(byIDSQL).WillReturnRows(addReservation(reservationRows(), 42, start, model.StatusConfirmed))
	mock.ExpectCommit()

	got, err := s.InsertReservation(context.Background(), model.Reservation{
		ResourceID: 2, Holder: model.UserHolder(9), StartAt: start, EndAt: start.Add(time.Hour), Status: model.StatusConfirmed,
	}, func(model.Resource, []model.Reservation) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, uint64(42), got.ID)
	assert.Equal(t, model.UserHolder(9), got.Holder)
	assert.Equal(t, start, got.StartAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_InsertUnknownResource(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockResourceSQL).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.InsertReservation(context.Background(), model.Reservation{ResourceID: 99}, nil)
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStore_TransitionIsConditional(t *testing.T) {
	start := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)
	at := start.Add(5 * time.Minute)

	t.Run("applies when the status matches", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(transitionSQL).
			WithArgs("checked_in", at, at, sqlmock.AnyArg(), "confirmed").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(byIDSQL).WillReturnRows(addReservation(reservationRows(), 7, start, model.StatusCheckedIn))

		got, err := s.TransitionStatus(context.Background(), 7, model.StatusConfirmed, model.StatusCheckedIn, at)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCheckedIn, got.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports the current status when it does not", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(transitionSQL).
			WithArgs("checked_in", at, at, sqlmock.AnyArg(), "confirmed").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(byIDSQL).WillReturnRows(addReservation(reservationRows(), 7, start, model.StatusNoShow))

		_, err := s.TransitionStatus(context.Background(), 7, model.StatusConfirmed, model.StatusCheckedIn, at)
		var te *booking.TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, model.StatusNoShow, te.From)
		assert.Equal(t, model.StatusCheckedIn, te.To)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingStore_NoShowCandidates(t *testing.T) {
	s, mock := newMockStore(t)
	cutoff := time.Date(2024, 1, 10, 3, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = ? AND check_in_at IS NULL AND start_at < ?")).
		WithArgs("confirmed", cutoff).
		WillReturnRows(reservationRows())

	got, err := s.ListNoShowCandidates(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
