/*
Package server implements msgpack IPC for the city prefix filter.

Clients send structured messages and receive the sample for the map layer plus
the begins-with breakdown. The same messages travel over stdin/stdout (one
msgpack value per frame) or as binary websocket frames.

# IPC

Each request carries an ID, an optional action and the prefix:

	{"id": "req_001", "action": "filter", "p": "bos"}

The server responds with markers, breakdown rows and timing in microseconds:

	{"id": "req_001", "s": [{"id": "1", "ci": "Boston", "st": "MA", "la": 42.36, "lo": -71.06, "k": "bost"}],
	 "b": [{"k": "bost", "n": 1, "p": 1}], "c": 1, "n": 1, "t": 145, "r": false}

Keystrokes should use the "input" action. Input requests are debounced: only the
last request of a burst is answered and superseded IDs receive no reply.

	{"id": "in_1", "action": "input", "p": "b"}
	{"id": "in_2", "action": "input", "p": "bo"}   -> answered once quiet

Other actions: "reset" drops the incremental cache, "stats" reports counters,
"health" reports readiness and the stored session prefix, "restore" filters by
the stored session prefix.

Errors use a compact shape:

	{"id": "req_002", "e": "prefix exceeds maximum length of 60 characters", "c": 400}
*/
package server

import (
	"github.com/bastiangx/cityserve/pkg/filter"
	"github.com/bastiangx/cityserve/pkg/markers"
)

// Supported request actions. An empty action means ActionFilter.
const (
	ActionFilter  = "filter"
	ActionInput   = "input"
	ActionReset   = "reset"
	ActionStats   = "stats"
	ActionHealth  = "health"
	ActionRestore = "restore"
)

// Request is a client message.
type Request struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"action,omitempty"`
	Prefix string `msgpack:"p"`
}

// FilterResponse answers filter, input and restore requests.
type FilterResponse struct {
	ID        string           `msgpack:"id"`
	Markers   []markers.Marker `msgpack:"s"`
	Breakdown []filter.Group   `msgpack:"b"`
	Count     int              `msgpack:"c"`
	Total     int              `msgpack:"n"`
	TimeTaken int64            `msgpack:"t"`
	Reused    bool             `msgpack:"r"`
	Prefix    string           `msgpack:"q"`
	Radius    int              `msgpack:"rad"`
}

// StatusResponse answers reset, stats and health requests.
type StatusResponse struct {
	ID     string         `msgpack:"id"`
	Status string         `msgpack:"status"`
	Prefix string         `msgpack:"q,omitempty"`
	Stats  map[string]int `msgpack:"stats,omitempty"`
}

// ErrorResponse holds basic error information for a failed request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
