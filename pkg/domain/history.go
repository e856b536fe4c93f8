package domain

import "strings"

// History is the ordered, append-only list of finished entries of one session.
type History struct {
	entries []Entry
}

// NewHistory builds a history from entries already known to be terminal,
// e.g. when loading from a store.
func NewHistory(entries []Entry) *History {
	return &History{entries: append([]Entry(nil), entries...)}
}

// Append adds a terminal entry at the end.
func (h *History) Append(e Entry) error {
	if !e.Status.Terminal() {
		return ErrEntryPending
	}
	h.entries = append(h.entries, e)
	return nil
}

// Len is the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of all entries, oldest first.
func (h *History) Entries() []Entry {
	return append([]Entry(nil), h.entries...)
}

// Get finds an entry by ID.
func (h *History) Get(id string) (Entry, bool) {
	for _, e := range h.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Filter returns the entries whose input contains query, oldest first.
// An empty query matches everything.
func (h *History) Filter(query string) []Entry {
	return FilterEntries(h.entries, query)
}

// FilterEntries applies the substring filter to any entry list.
func FilterEntries(entries []Entry, query string) []Entry {
	if query == "" {
		return append([]Entry(nil), entries...)
	}
	var out []Entry
	for _, e := range entries {
		if strings.Contains(e.Input, query) {
			out = append(out, e)
		}
	}
	return out
}

// Inputs lists the inputs, oldest first.
func (h *History) Inputs() []string {
	out := make([]string, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Input
	}
	return out
}
