// Package filter is the core of cityserve: it narrows a fixed city dataset by a typed
// "begins with" prefix, samples a bounded subset for the map and breaks the matches
// down by their next character.
package filter

// Filterer defines the interface for prefix filter engines.
type Filterer interface {
	// Filter narrows the dataset by prefix and returns the sample and breakdown.
	Filter(prefix string) Result

	// Reset drops the cached previous result.
	Reset()

	// LastPrefix returns the normalized prefix of the previous call.
	LastPrefix() string

	// Stats returns counters about the calls served so far.
	Stats() Stats
}
