package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/coworking-booking/internal/booking"
	"github.com/iliyamo/coworking-booking/internal/model"
)

// Memory is an in-process store for tests and local development. A single
// mutex serializes writers, which makes InsertReservation's check and
// insert atomic the same way the resource row lock does in MySQL.
type Memory struct {
	mu           sync.RWMutex
	resources    map[uint64]model.Resource
	reservations map[uint64]model.Reservation
	guests       map[uint64]model.Guest
	guestByPhone map[string]uint64
	users        map[uint64]model.User
	tokens       map[string]model.RefreshToken
	seq          uint64
}

func NewMemory() *Memory {
	return &Memory{
		resources:    make(map[uint64]model.Resource),
		reservations: make(map[uint64]model.Reservation),
		guests:       make(map[uint64]model.Guest),
		guestByPhone: make(map[string]uint64),
		users:        make(map[uint64]model.User),
		tokens:       make(map[string]model.RefreshToken),
	}
}

func (m *Memory) nextID() uint64 {
	m.seq++
	return m.seq
}

// AddResource stores r, assigning an ID when r.ID is zero.
func (m *Memory) AddResource(r model.Resource) model.Resource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.nextID()
	} else if r.ID > m.seq {
		m.seq = r.ID
	}
	m.resources[r.ID] = r
	return r
}

// AddReservation stores r as-is, bypassing admission. Used for fixtures.
func (m *Memory) AddReservation(r model.Reservation) model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.nextID()
	} else if r.ID > m.seq {
		m.seq = r.ID
	}
	m.reservations[r.ID] = r
	return r
}

// GuestCount reports how many guest rows exist.
func (m *Memory) GuestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.guests)
}

func (m *Memory) GetResource(_ context.Context, id uint64) (model.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resources[id]
	if !ok {
		return model.Resource{}, booking.ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListResources(_ context.Context, includeArchived bool) ([]model.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		if r.IsArchived && !includeArchived {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListOverlapping(_ context.Context, resourceID uint64, from, to time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overlappingLocked(resourceID, from, to, statuses), nil
}

func (m *Memory) overlappingLocked(resourceID uint64, from, to time.Time, statuses []model.ReservationStatus) []model.Reservation {
	want := make(map[model.ReservationStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []model.Reservation
	for _, r := range m.reservations {
		if r.ResourceID != resourceID || !want[r.Status] || !r.Overlaps(from, to) {
			continue
		}
		out = append(out, r)
	}
	sortByStart(out)
	return out
}

func (m *Memory) FindGuestByPhone(_ context.Context, phone string) (model.Guest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.guestByPhone[phone]
	if !ok {
		return model.Guest{}, booking.ErrNotFound
	}
	return m.guests[id], nil
}

func (m *Memory) InsertGuest(_ context.Context, name, phone string) (model.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.guestByPhone[phone]; ok {
		return m.guests[id], nil
	}
	g := model.Guest{ID: m.nextID(), FullName: name, Phone: phone, CreatedAt: time.Now().UTC()}
	m.guests[g.ID] = g
	m.guestByPhone[phone] = g.ID
	return g, nil
}

func (m *Memory) InsertReservation(_ context.Context, res model.Reservation, admit booking.Admission) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[res.ResourceID]
	if !ok {
		return model.Reservation{}, booking.ErrNotFound
	}
	if admit != nil {
		overlapping := m.overlappingLocked(res.ResourceID, res.StartAt, res.EndAt, model.OccupyingStatuses)
		if err := admit(r, overlapping); err != nil {
			return model.Reservation{}, err
		}
	}
	res.ID = m.nextID()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	res.UpdatedAt = res.CreatedAt
	m.reservations[res.ID] = res
	return res, nil
}

func (m *Memory) GetReservation(_ context.Context, id uint64) (model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return model.Reservation{}, booking.ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListReservations(_ context.Context, f booking.ReservationFilter) ([]model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Reservation
	for _, r := range m.reservations {
		if f.ResourceID != 0 && r.ResourceID != f.ResourceID {
			continue
		}
		if f.Holder != nil && r.Holder != *f.Holder {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && !r.EndAt.After(f.From) {
			continue
		}
		if !f.To.IsZero() && !r.StartAt.Before(f.To) {
			continue
		}
		out = append(out, r)
	}
	sortByStart(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) TransitionStatus(_ context.Context, id uint64, from, to model.ReservationStatus, at time.Time) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return model.Reservation{}, booking.ErrNotFound
	}
	if r.Status != from {
		return model.Reservation{}, &booking.TransitionError{ID: id, From: r.Status, To: to}
	}
	r.Status = to
	r.UpdatedAt = at
	stamp := at
	switch to {
	case model.StatusCheckedIn:
		r.CheckInAt = &stamp
	case model.StatusCompleted:
		r.CheckOutAt = &stamp
	case model.StatusCancelled:
		r.CancelledAt = &stamp
	}
	m.reservations[id] = r
	return r, nil
}

func (m *Memory) ListNoShowCandidates(_ context.Context, before time.Time) ([]model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Reservation
	for _, r := range m.reservations {
		if r.Status == model.StatusConfirmed && r.CheckInAt == nil && r.StartAt.Before(before) {
			out = append(out, r)
		}
	}
	sortByStart(out)
	return out, nil
}

// CreateUser stores a user with an already hashed password.
func (m *Memory) CreateUser(_ context.Context, email, passwordHash, role string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			return 0, ErrEmailExists
		}
	}
	now := time.Now().UTC()
	u := model.User{ID: m.nextID(), Email: email, PasswordHash: passwordHash, Role: role, IsActive: true, CreatedAt: now, UpdatedAt: now}
	m.users[u.ID] = u
	return u.ID, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, booking.ErrNotFound
}

func (m *Memory) GetUserByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, booking.ErrNotFound
	}
	return u, nil
}

func (m *Memory) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenHash] = model.RefreshToken{ID: m.nextID(), UserID: userID, TokenHash: tokenHash, ExpiresAt: exp, CreatedAt: time.Now().UTC()}
	return nil
}

func (m *Memory) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
		return 0, ErrTokenInvalid
	}
	return t.UserID, nil
}

func (m *Memory) RevokeByHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := time.Now().UTC()
		t.RevokedAt = &now
		m.tokens[tokenHash] = t
	}
	return nil
}

func (m *Memory) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for h, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			m.tokens[h] = t
		}
	}
	return nil
}

func sortByStart(rs []model.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].StartAt.Equal(rs[j].StartAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].StartAt.Before(rs[j].StartAt)
	})
}
