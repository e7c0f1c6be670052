// Package sequence produces the human-readable order and tracking numbers
// (ORD-2026-00001, SHIP-2026-00042). Numbers are unique and monotonically
// increasing within one generator instance; the Redis-backed generator
// extends that across processes.
package sequence

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"
)

const (
	OrderPrefix    = "ORD"
	TrackingPrefix = "SHIP"
)

var numberPattern = regexp.MustCompile(`^[A-Z]+-\d{4}-\d{5,}$`)

type Generator interface {
	Next(ctx context.Context) (string, error)
}

// IsWellFormed reports whether a number matches the PREFIX-YYYY-NNNNN shape.
func IsWellFormed(number string) bool {
	return numberPattern.MatchString(number)
}

// Memory is a process-local monotonic generator.
type Memory struct {
	prefix string
	mu     sync.Mutex
	last   uint64
}

func NewMemory(prefix string) *Memory {
	return &Memory{prefix: prefix}
}

func (g *Memory) Next(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last++
	return Format(g.prefix, time.Now().Year(), g.last), nil
}

func Format(prefix string, year int, seq uint64) string {
	return fmt.Sprintf("%s-%04d-%05d", prefix, year, seq)
}
