package domain

// Navigator walks previous inputs the way a shell does: Previous moves
// towards older inputs, Next towards newer ones and finally back to an empty
// line. The cursor counts back from the most recent input; -1 means the
// user is on a fresh line.
type Navigator struct {
	cursor int
}

// NewNavigator returns a navigator on a fresh line.
func NewNavigator() *Navigator {
	return &Navigator{cursor: -1}
}

// Reset returns to a fresh line, e.g. after an entry is submitted.
func (n *Navigator) Reset() {
	n.cursor = -1
}

// Previous returns the next older input, stopping at the oldest.
func (n *Navigator) Previous(inputs []string) string {
	if len(inputs) == 0 {
		return ""
	}
	n.cursor = min(len(inputs)-1, n.cursor+1)
	return inputs[len(inputs)-1-n.cursor]
}

// Next returns the next newer input, or "" once past the newest.
func (n *Navigator) Next(inputs []string) string {
	if n.cursor <= 0 || len(inputs) == 0 {
		n.cursor = -1
		return ""
	}
	n.cursor = min(n.cursor-1, len(inputs)-1)
	return inputs[len(inputs)-1-n.cursor]
}
