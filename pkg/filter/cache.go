package filter

import (
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultSampleCap is the maximum number of records rendered at once.
	DefaultSampleCap = 5000
	// DefaultMinPerGroup is the number of records each begins-with group keeps when sampling.
	DefaultMinPerGroup = 30
)

// Result is the outcome of one Filter call.
type Result struct {
	Query Query
	// Sample is the bounded subset handed to the map layer.
	Sample []Record
	// Matches is the full, unsampled match set in dataset order.
	Matches   []Record
	Breakdown []Group
	Total     int
	Sampled   bool
	Reused    bool
	Elapsed   time.Duration
}

// Stats holds counters about the calls served by a Cache.
type Stats struct {
	Calls       int
	Scans       int
	Reuses      int
	DatasetSize int
	IndexKeys   int
	LastElapsed time.Duration
}

// Map flattens the stats for logging and wire responses.
func (s Stats) Map() map[string]int {
	return map[string]int{
		"calls":         s.Calls,
		"scans":         s.Scans,
		"reuses":        s.Reuses,
		"datasetSize":   s.DatasetSize,
		"indexKeys":     s.IndexKeys,
		"lastElapsedUs": int(s.LastElapsed.Microseconds()),
	}
}

type options struct {
	sampleCap   int
	minPerGroup int
	rng         *rand.Rand
	logger      *log.Logger
}

// Option configures a Cache.
type Option func(*options)

// WithSampleCap sets the maximum sample size.
func WithSampleCap(n int) Option {
	return func(o *options) { o.sampleCap = n }
}

// WithMinPerGroup sets how many records each group keeps when sampling.
func WithMinPerGroup(n int) Option {
	return func(o *options) { o.minPerGroup = n }
}

// WithRand sets the random source used for sampling.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Cache is the stateful prefix filter. It remembers the previous prefix and sample
// so that a narrowing prefix can be answered from the previous result instead of
// the whole dataset. A Cache is not safe for concurrent use.
type Cache struct {
	dataset Dataset
	index   *Index
	opts    options

	primed     bool
	lastPrefix string
	lastExact  bool
	lastResult []Record

	stats Stats
}

// NewCache creates a filter cache over ds.
func NewCache(ds Dataset, opts ...Option) *Cache {
	o := options{
		sampleCap:   DefaultSampleCap,
		minPerGroup: DefaultMinPerGroup,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sampleCap < 1 {
		o.sampleCap = DefaultSampleCap
	}
	if o.minPerGroup < 0 {
		o.minPerGroup = 0
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.logger == nil {
		o.logger = log.Default()
	}

	c := &Cache{opts: o}
	c.Reload(ds)
	return c
}

// NewCacheWithIndex creates a cache sharing a dataset and index built elsewhere.
// ds must already carry positions (see NewDataset) and ix must be built from it.
func NewCacheWithIndex(ds Dataset, ix *Index, opts ...Option) *Cache {
	c := NewCache(nil, opts...)
	c.dataset = ds
	c.index = ix
	c.stats = Stats{DatasetSize: len(ds), IndexKeys: ix.Keys()}
	return c
}

// Reload replaces the dataset, rebuilds the index and drops the cached result.
func (c *Cache) Reload(ds Dataset) {
	c.dataset = NewDataset(ds)
	c.index = NewIndex(c.dataset)
	c.stats = Stats{DatasetSize: len(c.dataset), IndexKeys: c.index.Keys()}
	c.Reset()
}

// Reset drops the cached previous result.
func (c *Cache) Reset() {
	c.primed = false
	c.lastPrefix = ""
	c.lastExact = false
	c.lastResult = nil
}

// LastPrefix returns the normalized prefix of the previous call.
func (c *Cache) LastPrefix() string { return c.lastPrefix }

// SampleCap returns the configured sample cap.
func (c *Cache) SampleCap() int { return c.opts.sampleCap }

// Dataset returns the dataset the cache filters.
func (c *Cache) Dataset() Dataset { return c.dataset }

// Stats returns counters about the calls served so far.
func (c *Cache) Stats() Stats { return c.stats }

// canReuse reports whether the previous sample is guaranteed to hold every match of q.
// The previous sample is complete only when it was not capped, and an exact-mode
// result never holds the longer cities a following prefix could match.
func (c *Cache) canReuse(q Query) bool {
	return c.primed &&
		!c.lastExact &&
		strings.HasPrefix(q.Prefix, c.lastPrefix) &&
		len(c.lastResult) < c.opts.sampleCap
}

// Filter narrows the dataset by prefix. It never fails: any string yields a result,
// possibly empty.
func (c *Cache) Filter(prefix string) Result {
	start := time.Now()
	q := ParseQuery(prefix)

	var matches []Record
	reused := c.canReuse(q)
	if reused {
		matches = c.scanCached(q)
		c.stats.Reuses++
	} else {
		matches = c.scanDataset(q)
		c.stats.Scans++
	}

	groups := groupMatches(matches, q.KeyLen())
	sample := sampleGroups(matches, groups, c.opts.sampleCap, c.opts.minPerGroup, c.opts.rng)

	c.primed = true
	c.lastPrefix = q.Prefix
	c.lastExact = q.Exact()
	c.lastResult = sample

	elapsed := time.Since(start)
	c.stats.Calls++
	c.stats.LastElapsed = elapsed

	c.opts.logger.Debug("filtered cities",
		"prefix", q.Prefix,
		"mode", q.Mode,
		"matches", len(matches),
		"sample", len(sample),
		"reused", reused,
		"took", elapsed)

	return Result{
		Query:     q,
		Sample:    sample,
		Matches:   matches,
		Breakdown: rankGroups(groups, len(matches)),
		Total:     len(matches),
		Sampled:   len(sample) < len(matches),
		Reused:    reused,
		Elapsed:   elapsed,
	}
}

func (c *Cache) scanCached(q Query) []Record {
	var matches []Record
	for _, r := range c.lastResult {
		if q.Matches(r.City) {
			matches = append(matches, r)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Pos < matches[j].Pos
	})
	return matches
}

func (c *Cache) scanDataset(q Query) []Record {
	if q.Prefix == "" {
		if q.Exact() {
			return c.scanLinear(q)
		}
		all := make([]Record, len(c.dataset))
		copy(all, c.dataset)
		return all
	}

	var positions []int
	if q.Exact() {
		positions = c.index.Exact(q.Prefix)
	} else {
		positions = c.index.Prefix(q.Prefix)
	}
	matches := make([]Record, 0, len(positions))
	for _, p := range positions {
		matches = append(matches, c.dataset[p])
	}
	return matches
}

func (c *Cache) scanLinear(q Query) []Record {
	var matches []Record
	for _, r := range c.dataset {
		if q.Matches(r.City) {
			matches = append(matches, r)
		}
	}
	return matches
}
