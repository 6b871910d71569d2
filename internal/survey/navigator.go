package survey

// Navigator owns the current step and derives which step and controls are visible.
//
// It never validates. Callers advance only after the active step was validated and committed.
type Navigator struct {
	current int
	total   int
}

// Controls tells which navigation controls are shown.
type Controls struct {
	ShowPrevious bool
	ShowNext     bool
	ShowSubmit   bool
}

func NewNavigator(total int) *Navigator {
	return &Navigator{current: 1, total: total}
}

// Current returns the active 1-indexed step.
func (n *Navigator) Current() int {
	return n.current
}

// Total returns N.
func (n *Navigator) Total() int {
	return n.total
}

// IsLast reports whether the active step is the terminal step N.
func (n *Navigator) IsLast() bool {
	return n.current == n.total
}

// Advance moves to the next step. It is a no-op on the terminal step where submit takes over.
func (n *Navigator) Advance() bool {
	if n.current >= n.total {
		return false
	}
	n.current++
	return true
}

// Retreat moves to the previous step without validation. It is a no-op on the first step.
func (n *Navigator) Retreat() bool {
	if n.current <= 1 {
		return false
	}
	n.current--
	return true
}

// Visible reports whether step is the one shown.
func (n *Navigator) Visible(step int) bool {
	return step == n.current
}

// Progress returns current/N in (0, 1].
func (n *Navigator) Progress() float64 {
	return float64(n.current) / float64(n.total)
}

// Controls returns the navigation control visibility for the active step.
func (n *Navigator) Controls() Controls {
	last := n.IsLast()
	return Controls{
		ShowPrevious: n.current != 1,
		ShowNext:     !last,
		ShowSubmit:   last,
	}
}
