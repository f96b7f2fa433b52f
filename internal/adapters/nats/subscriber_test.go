package natsadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"

	"github.com/para-cebu/para/internal/core/domain"
)

type fakeMsg struct{ acked, naked, termed int }

func (m *fakeMsg) Ack(...nats.AckOpt) error  { m.acked++; return nil }
func (m *fakeMsg) Nak(...nats.AckOpt) error  { m.naked++; return nil }
func (m *fakeMsg) Term(...nats.AckOpt) error { m.termed++; return nil }

func TestHandleCatalogUpdated_Ack(t *testing.T) {
	msg := &fakeMsg{}
	var got *domain.CatalogUpdate
	handleCatalogUpdated(context.Background(), msg,
		[]byte(`{"route_ids":["7001","7002"],"updated_at":"2026-01-02T03:04:05Z"}`),
		func(ctx context.Context, u *domain.CatalogUpdate) error {
			got = u
			return nil
		})

	assert.Equal(t, 1, msg.acked)
	assert.Equal(t, []string{"7001", "7002"}, got.RouteIDs)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), got.UpdatedAt)
}

func TestHandleCatalogUpdated_HandlerErrorNaks(t *testing.T) {
	msg := &fakeMsg{}
	handleCatalogUpdated(context.Background(), msg, []byte(`{"route_ids":["7001"]}`),
		func(ctx context.Context, u *domain.CatalogUpdate) error { return errors.New("overpass down") })
	assert.Equal(t, 1, msg.naked)
	assert.Zero(t, msg.acked)
}

func TestHandleCatalogUpdated_MalformedTerminates(t *testing.T) {
	msg := &fakeMsg{}
	called := false
	handleCatalogUpdated(context.Background(), msg, []byte(`not json`),
		func(ctx context.Context, u *domain.CatalogUpdate) error { called = true; return nil })
	assert.Equal(t, 1, msg.termed)
	assert.False(t, called)
}

func TestStreamConfig_CoversSubjects(t *testing.T) {
	cfg := streamConfig()
	assert.Equal(t, StreamName, cfg.Name)
	assert.ElementsMatch(t, []string{SubjectScanCompleted, SubjectCatalogUpdated}, cfg.Subjects)
}
