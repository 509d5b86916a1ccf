/* cache_test.go
 * Contains unit tests for invalidation keys and the recorder. The mongo cache is covered by mongo_integration_test.go
 */

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyString(t *testing.T) {
	tests := []struct {
		key      Key
		expected string
	}{
		{Challenge(), "challenge:updated"},
		{Key{Event: ChallengeClosed}, "challenge:closed"},
		{Player(12), "player:12:updated"},
		{Team(3), "team:3:updated"},
		{Key{Event: Event(99)}, "event(99)"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.key.String())
		})
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.Invalidate(context.Background(), Challenge(), Player(4))

	assert.True(t, r.Has(Challenge()))
	assert.True(t, r.Has(Player(4)))
	assert.False(t, r.Has(Player(5)))

	r.Reset()
	assert.Empty(t, r.Keys)
}

func TestNop(t *testing.T) {
	var inv Invalidator = Nop{}
	assert.NotPanics(t, func() { inv.Invalidate(context.Background(), Challenge()) })
}
