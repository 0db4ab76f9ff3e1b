package server

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/bastiangx/cityserve/pkg/config"
	"github.com/bastiangx/cityserve/pkg/debounce"
	"github.com/bastiangx/cityserve/pkg/filter"
	"github.com/bastiangx/cityserve/pkg/markers"
	"github.com/bastiangx/cityserve/pkg/session"
	"github.com/charmbracelet/log"
)

// DefaultSessionID keys the stored prefix when a client does not name a session.
const DefaultSessionID = "default"

// Deps are the shared, read-only pieces every client is built from.
type Deps struct {
	Dataset filter.Dataset
	Index   *filter.Index
	Config  *config.Config
	// Store may be nil, which disables session persistence.
	Store  session.Store
	Logger *log.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Config == nil {
		d.Config = config.DefaultConfig()
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Index == nil {
		d.Index = filter.NewIndex(d.Dataset)
	}
	return d
}

// client holds the per-connection filter state. Debounced input fires on a
// timer goroutine, so every use of cache goes through mu.
type client struct {
	mu        sync.Mutex
	cache     *filter.Cache
	deps      Deps
	sessionID string
	input     *debounce.Debouncer

	pendingID     string
	pendingPrefix string

	send func(v any) error
}

func newClient(deps Deps, sessionID string, send func(v any) error) *client {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	deps = deps.withDefaults()
	c := &client{
		deps:      deps,
		sessionID: sessionID,
		send:      send,
		cache: filter.NewCacheWithIndex(deps.Dataset, deps.Index,
			filter.WithSampleCap(deps.Config.Filter.SampleCap),
			filter.WithMinPerGroup(deps.Config.Filter.MinPerGroup),
			filter.WithLogger(deps.Logger),
		),
	}
	c.input = debounce.New(deps.Config.Debounce(), c.fireInput)
	return c
}

// handle dispatches one request. Replies go through send; input requests may
// be answered later or never.
func (c *client) handle(req Request) {
	switch req.Action {
	case "", ActionFilter:
		if !c.validPrefix(req) {
			return
		}
		c.input.Cancel()
		c.mu.Lock()
		c.pendingID, c.pendingPrefix = "", ""
		resp := c.filter(req.ID, req.Prefix)
		c.mu.Unlock()
		c.reply(resp)
	case ActionInput:
		if !c.validPrefix(req) {
			return
		}
		c.mu.Lock()
		c.pendingID, c.pendingPrefix = req.ID, req.Prefix
		c.mu.Unlock()
		c.input.Trigger(req.ID)
	case ActionReset:
		c.mu.Lock()
		c.cache.Reset()
		c.mu.Unlock()
		c.reply(StatusResponse{ID: req.ID, Status: "ok"})
	case ActionStats:
		c.mu.Lock()
		stats := c.cache.Stats().Map()
		prefix := c.cache.LastPrefix()
		c.mu.Unlock()
		c.reply(StatusResponse{ID: req.ID, Status: "ok", Prefix: prefix, Stats: stats})
	case ActionHealth:
		c.reply(StatusResponse{ID: req.ID, Status: "ok", Prefix: c.storedPrefix()})
	case ActionRestore:
		prefix := c.storedPrefix()
		c.mu.Lock()
		resp := c.filter(req.ID, prefix)
		c.mu.Unlock()
		c.reply(resp)
	default:
		c.replyError(req.ID, fmt.Sprintf("unknown action: %s", req.Action), 400)
	}
}

func (c *client) validPrefix(req Request) bool {
	maxPrefix := c.deps.Config.Input.MaxPrefix
	if maxPrefix > 0 && utf8.RuneCountInString(req.Prefix) > maxPrefix {
		c.replyError(req.ID, fmt.Sprintf("prefix exceeds maximum length of %d characters", maxPrefix), 400)
		c.deps.Logger.Debug("prefix too long", "id", req.ID, "len", utf8.RuneCountInString(req.Prefix))
		return false
	}
	return true
}

// fireInput answers the latest input request once the debounce window passes.
func (c *client) fireInput(id string) {
	c.mu.Lock()
	if id != c.pendingID {
		c.mu.Unlock()
		return
	}
	prefix := c.pendingPrefix
	c.pendingID, c.pendingPrefix = "", ""
	resp := c.filter(id, prefix)
	c.mu.Unlock()
	c.reply(resp)
}

// filter runs the cache and builds the wire response. Caller holds mu.
func (c *client) filter(id, prefix string) FilterResponse {
	res := c.cache.Filter(prefix)
	prefixLen := utf8.RuneCountInString(res.Query.Prefix)
	cfg := c.deps.Config

	if c.deps.Store != nil {
		if err := c.deps.Store.SaveLastPrefix(c.sessionID, prefix); err != nil {
			c.deps.Logger.Warnf("Failed to save session prefix: %v", err)
		}
	}

	return FilterResponse{
		ID:        id,
		Markers:   markers.FromSample(res.Sample, prefixLen),
		Breakdown: res.Breakdown,
		Count:     len(res.Sample),
		Total:     res.Total,
		TimeTaken: res.Elapsed.Microseconds(),
		Reused:    res.Reused,
		Prefix:    res.Query.Raw,
		Radius:    markers.Radius(len(res.Sample), c.cache.SampleCap(), cfg.Markers.MinRadius, cfg.Markers.MaxRadius),
	}
}

func (c *client) storedPrefix() string {
	if c.deps.Store == nil {
		return ""
	}
	prefix, err := c.deps.Store.LastPrefix(c.sessionID)
	if err != nil {
		c.deps.Logger.Warnf("Failed to read session prefix: %v", err)
		return ""
	}
	return prefix
}

// flush answers a pending input request right away.
func (c *client) flush() {
	c.input.Flush()
}

// close drops pending input and waits for an in-flight reply to finish.
func (c *client) close() {
	c.input.Stop()
	c.mu.Lock()
	c.pendingID, c.pendingPrefix = "", ""
	c.mu.Unlock()
}

func (c *client) reply(v any) {
	if err := c.send(v); err != nil {
		c.deps.Logger.Errorf("Failed to send response: %v", err)
	}
}

func (c *client) replyError(id, message string, code int) {
	c.reply(ErrorResponse{ID: id, Error: message, Code: code})
}
