package alerting

import "time"

// State is the alert state of a site for one calendar day.
type State int

const (
	// Sufficient means stock is at or above threshold; no alert is possible.
	Sufficient State = iota + 1
	// Eligible means stock is low and no alert went out today.
	Eligible
	// Suppressed means stock is low and an alert already went out today.
	Suppressed
)

func (s State) String() string {
	switch s {
	case Sufficient:
		return "sufficient"
	case Eligible:
		return "eligible"
	case Suppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Evaluate. Only the engine creates decisions, and
// Confirm only dispatches for an Eligible one.
type Decision struct {
	siteID       string
	stock        float64
	day          time.Time
	state        State
	lastAlert    time.Time
	hasLastAlert bool
}

func (d Decision) SiteID() string { return d.siteID }
func (d Decision) Stock() float64 { return d.stock }
func (d Decision) Day() time.Time { return d.day }
func (d Decision) State() State { return d.state }
func (d Decision) CanDispatch() bool { return d.state == Eligible }

// LastAlert returns the last recorded alert day, if any.
func (d Decision) LastAlert() (time.Time, bool) {
	return d.lastAlert, d.hasLastAlert
}
