package resultstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runContract exercises the behavior every Store shares.
func runContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	in := &Result{
		JobID:       "job1",
		HTML:        "<html><body><div class=\"page\"></div></body></html>",
		Pages:       3,
		Items:       1,
		Splits:      2,
		Diagnostics: []string{"content item 0: unexpected doctype node treated as fitting"},
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, s.Put(ctx, "job1", in))

	out, err := s.Get(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// Mutating the returned copy leaves the stored one alone.
	out.Pages = 99
	again, err := s.Get(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Pages)

	require.NoError(t, s.Delete(ctx, "job1"))
	_, err = s.Get(ctx, "job1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is fine.
	assert.NoError(t, s.Delete(ctx, "job1"))
}

func TestMemoryContract(t *testing.T) {
	runContract(t, NewMemory(0))
}

func TestMemoryTTL(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "a", &Result{JobID: "a"}))
	require.NoError(t, m.Put(ctx, "b", &Result{JobID: "b"}))

	now = now.Add(30 * time.Second)
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, m.Cleanup())
	assert.Equal(t, 0, m.Len())
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisContract(t *testing.T) {
	_, client := newMiniredis(t)
	runContract(t, NewFromClient(client))
}

func TestRedisPrefixAndTTL(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewFromClient(client, WithPrefix("test:"), WithTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Put(ctx, "j", &Result{JobID: "j"}))
	assert.True(t, mr.Exists("test:j"))
	assert.Equal(t, time.Hour, mr.TTL("test:j"))

	mr.FastForward(2 * time.Hour)
	_, err := s.Get(ctx, "j")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisDefaultPrefix(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewFromClient(client)
	require.NoError(t, s.Put(context.Background(), "j", &Result{JobID: "j"}))
	assert.True(t, mr.Exists("boxflow:result:j"))
	assert.Zero(t, mr.TTL("boxflow:result:j"))
}

func TestRedisUnavailable(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewFromClient(client)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Put(ctx, "j", &Result{JobID: "j"})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = s.Get(ctx, "j")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Ping(ctx), ErrUnavailable)
}
