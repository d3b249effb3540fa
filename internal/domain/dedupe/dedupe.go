// Package dedupe tracks keys already seen within a single run.
package dedupe

import (
	"context"
	"strings"
	"time"
)

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord reports whether key was seen before and records it if not.
	SeenAndRecord(ctx context.Context, key string) bool

	// Size is the number of distinct keys recorded.
	Size() int64
}

// inMemoryDeduper is a plain set. The pipeline is single threaded, so no
// locking is needed, and it never evicts: a forgotten key would let a
// duplicate through.
type inMemoryDeduper struct {
	seen map[string]struct{}
}

// NewInMemoryDeduper creates an empty, unbounded deduper. sizeHint
// pre-sizes the underlying map.
func NewInMemoryDeduper(sizeHint int) Deduper {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &inMemoryDeduper{seen: make(map[string]struct{}, sizeHint)}
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Size() int64 {
	return int64(len(d.seen))
}

// ObservationKey builds the (country, date) key used to detect duplicate rows.
func ObservationKey(country string, date time.Time) string {
	var b strings.Builder
	b.Grow(len(country) + 11)
	b.WriteString(country)
	b.WriteByte('|')
	b.WriteString(date.Format(time.DateOnly))
	return b.String()
}
