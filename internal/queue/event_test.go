package queue

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-booking/internal/model"
)

func sampleReservation() model.Reservation {
	return model.Reservation{
		ID:         12,
		ResourceID: 3,
		Holder:     model.GuestHolder(8),
		StartAt:    time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2024, 1, 10, 3, 0, 0, 0, time.UTC),
		Status:     model.StatusNoShow,
		Price:      decimal.NewFromInt(45000),
	}
}

func TestNewBookingEvent(t *testing.T) {
	ev := NewBookingEvent(EventNoShow, sampleReservation(), time.Date(2024, 1, 10, 3, 5, 0, 0, time.UTC))

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventNoShow, ev.Type)
	assert.Equal(t, "guest", ev.HolderKind)
	assert.Equal(t, uint64(8), ev.HolderID)
	assert.Equal(t, "2024-01-10T02:00:00Z", ev.StartsAt)
	assert.Equal(t, "45000.00", ev.Price)
	assert.Equal(t, "2024-01-10T03:05:00Z", ev.OccurredAt)

	other := NewBookingEvent(EventNoShow, sampleReservation(), time.Now())
	assert.NotEqual(t, ev.ID, other.ID)
}

func TestEventForStatus(t *testing.T) {
	assert.Equal(t, EventCheckedIn, EventForStatus(model.StatusCheckedIn))
	assert.Equal(t, EventCheckedOut, EventForStatus(model.StatusCompleted))
	assert.Equal(t, EventCancelled, EventForStatus(model.StatusCancelled))
	assert.Equal(t, EventNoShow, EventForStatus(model.StatusNoShow))
	assert.Equal(t, EventCreated, EventForStatus(model.StatusConfirmed))
}

func TestHandleMessage_AppendsAuditLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	c := NewConsumer("amqp://unused", dir, zap.NewNop())

	for _, typ := range []EventType{EventCreated, EventCancelled} {
		body, err := json.Marshal(NewBookingEvent(typ, sampleReservation(), time.Now()))
		require.NoError(t, err)
		require.NoError(t, c.HandleMessage(body))
	}

	data, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "booking.created | reservation_id=12 | resource_id=3 | holder=guest:8")
	assert.Contains(t, lines[1], "booking.cancelled")
}

func TestHandleMessage_RejectsBadPayloads(t *testing.T) {
	dir := t.TempDir()
	c := NewConsumer("amqp://unused", dir, nil)

	assert.Error(t, c.HandleMessage([]byte("{not json")))
	assert.Error(t, c.HandleMessage([]byte(`{"type":"booking.created"}`)))
	assert.Error(t, c.HandleMessage([]byte(`{"reservation_id":4}`)))

	_, err := os.Stat(filepath.Join(dir, "booking.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestPublisher_BoundedDialAndBackoff(t *testing.T) {
	// A listener that accepts connections but never speaks AMQP.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				_, _ = io.Copy(io.Discard, c)
				_ = c.Close()
			}()
		}
	}()

	p := NewPublisher("amqp://guest:guest@"+ln.Addr().String()+"/", nil)
	p.DialTimeout = 200 * time.Millisecond
	p.Backoff = time.Minute
	t.Cleanup(func() { _ = p.Close() })
	ev := NewBookingEvent(EventCreated, sampleReservation(), time.Now())

	start := time.Now()
	err = p.Publish(context.Background(), ev)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	// Within the backoff window no dial is attempted.
	err = p.Publish(context.Background(), ev)
	assert.ErrorIs(t, err, ErrBrokerUnavailable)
}
