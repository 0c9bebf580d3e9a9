package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthManager(t *testing.T) {
	hm := NewHealthManager()
	assert.False(t, hm.Healthy(time.Minute))

	h := hm.Check(context.Background(), "query-pool", pingFunc(func(context.Context) error { return nil }))
	assert.Equal(t, StatusHealthy, h.Status)
	assert.True(t, hm.Healthy(time.Minute))

	h = hm.Check(context.Background(), "writer", pingFunc(func(context.Context) error { return errors.New("refused") }))
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Equal(t, "refused", h.Error)
	assert.False(t, hm.Healthy(time.Minute))

	all := hm.All()
	if assert.Len(t, all, 2) {
		assert.Equal(t, "query-pool", all[0].Component)
		assert.Equal(t, "writer", all[1].Component)
	}
}

func TestHealthManagerStale(t *testing.T) {
	hm := NewHealthManager()
	hm.Update(Health{Component: "query-pool", Status: StatusHealthy, LastCheck: time.Now().Add(-time.Hour)})
	assert.False(t, hm.Healthy(time.Minute))

	got, ok := hm.Get("query-pool")
	assert.True(t, ok)
	assert.Equal(t, StatusHealthy, got.Status)
}
