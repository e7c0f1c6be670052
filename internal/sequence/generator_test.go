package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "ORD-2026-00001", Format(OrderPrefix, 2026, 1))
	assert.Equal(t, "SHIP-2026-00042", Format(TrackingPrefix, 2026, 42))
	// sequence widens past five digits instead of wrapping
	assert.Equal(t, "ORD-2026-123456", Format(OrderPrefix, 2026, 123456))
}

func TestIsWellFormed(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
	}{
		{"ORD-2026-00001", true},
		{"SHIP-2026-99999", true},
		{"SHIP-2026-123456", true},
		{"ORD-26-00001", false},
		{"ord-2026-00001", false},
		{"ORD-2026-001", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsWellFormed(tt.number))
		})
	}
}

func TestMemory_Next(t *testing.T) {
	gen := NewMemory(OrderPrefix)
	ctx := context.Background()

	first, err := gen.Next(ctx)
	require.NoError(t, err)
	second, err := gen.Next(ctx)
	require.NoError(t, err)

	assert.True(t, IsWellFormed(first))
	assert.True(t, IsWellFormed(second))
	assert.Equal(t, Format(OrderPrefix, time.Now().Year(), 1), first)
	assert.Equal(t, Format(OrderPrefix, time.Now().Year(), 2), second)
}

func TestMemory_Next_ConcurrentUnique(t *testing.T) {
	gen := NewMemory(TrackingPrefix)
	ctx := context.Background()

	const n = 100
	var mu sync.Mutex
	seen := make(map[string]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := gen.Next(ctx)
			assert.NoError(t, err)
			mu.Lock()
			seen[number] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}
