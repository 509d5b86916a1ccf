package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTestCache connects to MONGO_TEST_URI, skipping the test when it is not set or not reachable
func NewTestCache(t *testing.T) *Mongo {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo integration test in short mode")
	}
	mongoURI := os.Getenv("MONGO_TEST_URI")
	if mongoURI == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m, err := NewMongo(ctx, mongoURI, "otl_test", time.Minute, nil)
	if err != nil {
		t.Skipf("mongo not reachable: %v", err)
	}
	_ = m.Collection.Drop(ctx)
	require.NoError(t, m.ensureIndexes(ctx))
	t.Cleanup(func() {
		_ = m.Collection.Drop(context.Background())
		_ = m.Disconnect(context.Background())
	})
	return m
}

type challengeView struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func TestMongo_PutGetInvalidate(t *testing.T) {
	m := NewTestCache(t)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "challenge:1", []Key{Challenge(), Player(7)}, challengeView{ID: 1, Title: "Finals"}))
	require.NoError(t, m.Put(ctx, "team:2", []Key{Team(2)}, challengeView{ID: 2}))

	var got challengeView
	found, err := m.Get(ctx, "challenge:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Finals", got.Title)

	m.Invalidate(ctx, Player(7))
	found, err = m.Get(ctx, "challenge:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = m.Get(ctx, "team:2", &got)
	require.NoError(t, err)
	assert.True(t, found, "unrelated views survive")
}

func TestMongo_ExpiredViewIsAMiss(t *testing.T) {
	m := NewTestCache(t)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "challenge:3", []Key{Challenge()}, challengeView{ID: 3}))
	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	var got challengeView
	found, err := m.Get(ctx, "challenge:3", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
