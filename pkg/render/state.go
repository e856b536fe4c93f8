package render

import (
	"strconv"
	"strings"
)

// Pos identifies one rendered occurrence by the steps taken from the root:
// an array index, or the key (k<i>) or value (v<i>) side of object entry i.
// Two occurrences of the same shared node always have different positions.
type Pos string

// RootPos is the position of the root occurrence.
const RootPos Pos = "$"

// Index is the position of array element i below p.
func (p Pos) Index(i int) Pos { return p.step(strconv.Itoa(i)) }

// Key is the position of the key of object entry i below p.
func (p Pos) Key(i int) Pos { return p.step("k" + strconv.Itoa(i)) }

// Value is the position of the value of object entry i below p.
func (p Pos) Value(i int) Pos { return p.step("v" + strconv.Itoa(i)) }

func (p Pos) step(s string) Pos { return p + "/" + Pos(s) }

// Depth is the number of steps below the root.
func (p Pos) Depth() int { return strings.Count(string(p), "/") }

// Valid reports whether p is a well-formed position.
func (p Pos) Valid() bool {
	parts := strings.Split(string(p), "/")
	if parts[0] != string(RootPos) {
		return false
	}
	for _, part := range parts[1:] {
		digits := part
		if strings.HasPrefix(part, "k") || strings.HasPrefix(part, "v") {
			digits = part[1:]
		}
		if _, err := strconv.Atoi(digits); err != nil || digits == "" || digits[0] == '-' || digits[0] == '+' {
			return false
		}
	}
	return true
}

// State holds the expand/collapse flag of every occurrence of one rendered
// heap. Positions that were never toggled are collapsed.
//
// State is not safe for concurrent use; its owner serializes access.
type State struct {
	expanded map[Pos]bool
}

// NewState returns a State with everything collapsed.
func NewState() *State {
	return &State{expanded: make(map[Pos]bool)}
}

// Expanded reports whether the occurrence at p is open.
func (s *State) Expanded(p Pos) bool {
	if s == nil {
		return false
	}
	return s.expanded[p]
}

// Toggle flips the occurrence at p and returns its new value.
// No other position is affected.
func (s *State) Toggle(p Pos) bool {
	open := !s.expanded[p]
	s.Set(p, open)
	return open
}

// Set opens or closes the occurrence at p.
func (s *State) Set(p Pos, open bool) {
	if open {
		s.expanded[p] = true
		return
	}
	delete(s.expanded, p)
}

// Open lists the expanded positions.
func (s *State) Open() []Pos {
	out := make([]Pos, 0, len(s.expanded))
	for p := range s.expanded {
		out = append(out, p)
	}
	return out
}

// Reset collapses everything.
func (s *State) Reset() {
	clear(s.expanded)
}
