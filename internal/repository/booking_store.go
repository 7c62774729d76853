package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/coworking-booking/internal/booking"
	"github.com/iliyamo/coworking-booking/internal/model"
)

const (
	resourceCols    = "id, name, price_per_hour, quantity, open_time, close_time, is_archived, created_at, updated_at"
	guestCols       = "id, full_name, phone_number, created_at"
	reservationCols = "id, resource_id, user_id, guest_id, start_at, end_at, status, price, check_in_at, check_out_at, cancelled_at, created_at, updated_at"
)

// BookingStore is the MySQL implementation of booking.Store. All DATETIME
// columns hold UTC.
type BookingStore struct {
	db *sqlx.DB
}

func NewBookingStore(db *sqlx.DB) *BookingStore {
	if db == nil {
		panic("nil db passed to NewBookingStore")
	}
	return &BookingStore{db: db}
}

// reservationRow mirrors the reservations table; exactly one of UserID and
// GuestID is valid.
type reservationRow struct {
	ID          uint64          `db:"id"`
	ResourceID  uint64          `db:"resource_id"`
	UserID      sql.NullInt64   `db:"user_id"`
	GuestID     sql.NullInt64   `db:"guest_id"`
	StartAt     time.Time       `db:"start_at"`
	EndAt       time.Time       `db:"end_at"`
	Status      string          `db:"status"`
	Price       decimal.Decimal `db:"price"`
	CheckInAt   sql.NullTime    `db:"check_in_at"`
	CheckOutAt  sql.NullTime    `db:"check_out_at"`
	CancelledAt sql.NullTime    `db:"cancelled_at"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r reservationRow) toModel() model.Reservation {
	out := model.Reservation{
		ID:          r.ID,
		ResourceID:  r.ResourceID,
		StartAt:     r.StartAt.UTC(),
		EndAt:       r.EndAt.UTC(),
		Status:      model.ReservationStatus(r.Status),
		Price:       r.Price,
		CheckInAt:   nullTime(r.CheckInAt),
		CheckOutAt:  nullTime(r.CheckOutAt),
		CancelledAt: nullTime(r.CancelledAt),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.UserID.Valid {
		out.Holder = model.UserHolder(uint64(r.UserID.Int64))
	} else if r.GuestID.Valid {
		out.Holder = model.GuestHolder(uint64(r.GuestID.Int64))
	}
	return out
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}

func holderColumns(h model.Holder) (userID, guestID sql.NullInt64) {
	switch h.Kind {
	case model.HolderUser:
		userID = sql.NullInt64{Int64: int64(h.ID), Valid: true}
	case model.HolderGuest:
		guestID = sql.NullInt64{Int64: int64(h.ID), Valid: true}
	}
	return userID, guestID
}

func toModels(rows []reservationRow) []model.Reservation {
	out := make([]model.Reservation, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}

func (s *BookingStore) GetResource(ctx context.Context, id uint64) (model.Resource, error) {
	var r model.Resource
	err := s.db.GetContext(ctx, &r, "SELECT "+resourceCols+" FROM resources WHERE id=? LIMIT 1", id)
	return r, notFound(err)
}

func (s *BookingStore) ListResources(ctx context.Context, includeArchived bool) ([]model.Resource, error) {
	q := "SELECT " + resourceCols + " FROM resources"
	if !includeArchived {
		q += " WHERE is_archived = FALSE"
	}
	q += " ORDER BY id"
	var out []model.Resource
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// overlappingQuery selects reservations intersecting [from, to) with the given statuses.
func overlappingQuery(resourceID uint64, from, to time.Time, statuses []model.ReservationStatus) (string, []any, error) {
	const q = "SELECT " + reservationCols + " FROM reservations" +
		" WHERE resource_id = ? AND status IN (?) AND start_at < ? AND end_at > ?" +
		" ORDER BY start_at, id"
	return sqlx.In(q, resourceID, statusStrings(statuses), to.UTC(), from.UTC())
}

func statusStrings(ss []model.ReservationStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func (s *BookingStore) ListOverlapping(ctx context.Context, resourceID uint64, from, to time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	q, args, err := overlappingQuery(resourceID, from, to, statuses)
	if err != nil {
		return nil, err
	}
	var rows []reservationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

func (s *BookingStore) FindGuestByPhone(ctx context.Context, phone string) (model.Guest, error) {
	var g model.Guest
	err := s.db.GetContext(ctx, &g, "SELECT "+guestCols+" FROM guests WHERE phone_number=? LIMIT 1", phone)
	return g, notFound(err)
}

// InsertGuest relies on the unique phone index: a concurrent insert of the
// same number resolves to the existing row.
func (s *BookingStore) InsertGuest(ctx context.Context, name, phone string) (model.Guest, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO guests (full_name, phone_number) VALUES (?, ?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)",
		name, phone)
	if err != nil {
		return model.Guest{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Guest{}, err
	}
	var g model.Guest
	err = s.db.GetContext(ctx, &g, "SELECT "+guestCols+" FROM guests WHERE id=?", id)
	return g, notFound(err)
}

// InsertReservation locks the resource row so that every writer targeting
// the same resource runs its capacity check and insert one at a time.
func (s *BookingStore) InsertReservation(ctx context.Context, res model.Reservation, admit booking.Admission) (model.Reservation, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var r model.Resource
	if err := tx.GetContext(ctx, &r, "SELECT "+resourceCols+" FROM resources WHERE id=? FOR UPDATE", res.ResourceID); err != nil {
		return model.Reservation{}, notFound(err)
	}

	if admit != nil {
		q, args, err := overlappingQuery(r.ID, res.StartAt, res.EndAt, model.OccupyingStatuses)
		if err != nil {
			return model.Reservation{}, err
		}
		var rows []reservationRow
		if err := tx.SelectContext(ctx, &rows, tx.Rebind(q), args...); err != nil {
			return model.Reservation{}, err
		}
		if err := admit(r, toModels(rows)); err != nil {
			return model.Reservation{}, err
		}
	}

	userID, guestID := holderColumns(res.Holder)
	const ins = `INSERT INTO reservations (resource_id, user_id, guest_id, start_at, end_at, status, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, ins,
		r.ID, userID, guestID, res.StartAt.UTC(), res.EndAt.UTC(), string(res.Status), res.Price)
	if err != nil {
		return model.Reservation{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Reservation{}, err
	}
	var row reservationRow
	if err := tx.GetContext(ctx, &row, "SELECT "+reservationCols+" FROM reservations WHERE id=?", id); err != nil {
		return model.Reservation{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return row.toModel(), nil
}

func (s *BookingStore) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	var row reservationRow
	if err := s.db.GetContext(ctx, &row, "SELECT "+reservationCols+" FROM reservations WHERE id=?", id); err != nil {
		return model.Reservation{}, notFound(err)
	}
	return row.toModel(), nil
}

func (s *BookingStore) ListReservations(ctx context.Context, f booking.ReservationFilter) ([]model.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if f.ResourceID != 0 {
		where = append(where, "resource_id = ?")
		args = append(args, f.ResourceID)
	}
	if f.Holder != nil {
		userID, guestID := holderColumns(*f.Holder)
		if userID.Valid {
			where = append(where, "user_id = ?")
			args = append(args, userID.Int64)
		} else {
			where = append(where, "guest_id = ?")
			args = append(args, guestID.Int64)
		}
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		where = append(where, "end_at > ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "start_at < ?")
		args = append(args, f.To.UTC())
	}
	q := "SELECT " + reservationCols + " FROM reservations"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY start_at, id"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	var rows []reservationRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

// stampColumn is the timestamp set when a reservation enters a status.
var stampColumn = map[model.ReservationStatus]string{
	model.StatusCheckedIn: "check_in_at",
	model.StatusCompleted: "check_out_at",
	model.StatusCancelled: "cancelled_at",
}

func (s *BookingStore) TransitionStatus(ctx context.Context, id uint64, from, to model.ReservationStatus, at time.Time) (model.Reservation, error) {
	set := "status = ?, updated_at = ?"
	args := []any{string(to), at.UTC()}
	if col, ok := stampColumn[to]; ok {
		set += ", " + col + " = ?"
		args = append(args, at.UTC())
	}
	args = append(args, id, string(from))

	result, err := s.db.ExecContext(ctx, "UPDATE reservations SET "+set+" WHERE id = ? AND status = ?", args...)
	if err != nil {
		return model.Reservation{}, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return model.Reservation{}, err
	}
	current, err := s.GetReservation(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if n == 0 {
		return model.Reservation{}, &booking.TransitionError{ID: id, From: current.Status, To: to}
	}
	return current, nil
}

func (s *BookingStore) ListNoShowCandidates(ctx context.Context, before time.Time) ([]model.Reservation, error) {
	var rows []reservationRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+reservationCols+" FROM reservations WHERE status = ? AND check_in_at IS NULL AND start_at < ? ORDER BY start_at, id",
		string(model.StatusConfirmed), before.UTC())
	if err != nil {
		return nil, err
	}
	return toModels(rows), nil
}
