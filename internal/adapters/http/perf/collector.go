// Package perf keeps a rolling window of request and query timings for the
// admin timing endpoint.
package perf

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultRingSize is the number of timings kept in memory.
const DefaultRingSize = 10000

// Kind tells request timings from query timings.
type Kind uint8

const (
	KindRequest Kind = iota
	KindQuery
)

// Entry is one timing.
type Entry struct {
	Kind     Kind
	Name     string // "METHOD /route" for requests, "op statement" for queries
	Status   int    // HTTP status; a failed statement records 500
	Duration time.Duration
	At       time.Time
}

// Collector is a fixed-size ring of entries. Record overwrites the oldest
// entry once the ring is full; aggregation happens in Snapshot.
type Collector struct {
	mu      sync.Mutex
	ring    []Entry
	next    int
	full    bool
	written atomic.Int64
}

// NewCollector creates a collector holding the last size entries.
// A non-positive size selects DefaultRingSize.
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{ring: make([]Entry, size)}
}

// Record stores e, overwriting the oldest entry when full.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.ring[c.next] = e
	c.next++
	if c.next == len(c.ring) {
		c.next = 0
		c.full = true
	}
	c.mu.Unlock()
	c.written.Add(1)
}

// TotalRecorded is the number of entries recorded since start, including overwritten ones.
func (c *Collector) TotalRecorded() int64 {
	return c.written.Load()
}

// Stat aggregates the timings of one route or statement.
type Stat struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Errors int     `json:"errors,omitempty"` // 5xx responses or failed statements
	AvgMs  float64 `json:"avg_ms"`
	MaxMs  float64 `json:"max_ms"`

	totalMs float64
}

// Snapshot summarises the entries recorded since a point in time.
type Snapshot struct {
	Since          time.Time `json:"since"`
	TotalRecorded  int64     `json:"total_recorded"`
	Requests       int       `json:"requests"`
	ServerErrors   int       `json:"server_errors"`
	RequestP50Ms   float64   `json:"request_p50_ms"`
	RequestP95Ms   float64   `json:"request_p95_ms"`
	RequestP99Ms   float64   `json:"request_p99_ms"`
	SlowestRoutes  []Stat    `json:"slowest_routes"`
	SlowestQueries []Stat    `json:"slowest_queries"`
}

// Snapshot aggregates entries at or after since and keeps the topN slowest
// routes and statements by average duration.
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	var entries []Entry
	if c.full {
		entries = slices.Clone(c.ring)
	} else {
		entries = slices.Clone(c.ring[:c.next])
	}
	c.mu.Unlock()

	snap := Snapshot{Since: since, TotalRecorded: c.TotalRecorded()}
	routes := map[string]*Stat{}
	queries := map[string]*Stat{}
	var durations []float64

	for _, e := range entries {
		if e.At.Before(since) {
			continue
		}
		ms := float64(e.Duration.Microseconds()) / 1000
		group := queries
		if e.Kind == KindRequest {
			group = routes
			durations = append(durations, ms)
			snap.Requests++
		}
		s := group[e.Name]
		if s == nil {
			s = &Stat{Name: e.Name}
			group[e.Name] = s
		}
		s.Count++
		s.totalMs += ms
		s.MaxMs = max(s.MaxMs, ms)
		if e.Status >= 500 {
			s.Errors++
			if e.Kind == KindRequest {
				snap.ServerErrors++
			}
		}
	}

	snap.SlowestRoutes = slowest(routes, topN)
	snap.SlowestQueries = slowest(queries, topN)

	slices.Sort(durations)
	snap.RequestP50Ms = percentile(durations, 50)
	snap.RequestP95Ms = percentile(durations, 95)
	snap.RequestP99Ms = percentile(durations, 99)
	return snap
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	return sorted[min(max(rank, 1), len(sorted))-1]
}

func slowest(stats map[string]*Stat, n int) []Stat {
	out := make([]Stat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.totalMs / float64(s.Count)
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Stat) int {
		if c := cmp.Compare(b.AvgMs, a.AvgMs); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RouteName groups a request under "METHOD /path" with id-like segments
// (UUIDs and numbers) replaced by {id}, so /admin/outbox/<uuid>/retry is one route.
func RouteName(method, path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if s == "" {
			continue
		}
		if uuid.Validate(s) == nil || strings.Trim(s, "0123456789") == "" {
			segs[i] = "{id}"
		}
	}
	return method + " " + strings.Join(segs, "/")
}
