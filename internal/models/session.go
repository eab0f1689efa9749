package models

// Action is a command submitted from the review page.
type Action string

const (
	ActionAccept      Action = "Accepted"
	ActionReject      Action = "Rejected"
	ActionNext        Action = "Next"
	ActionPrevious    Action = "Previous"
	ActionCheckStatus Action = "CheckStatus"
)

// ParseAction validates a submitted action value.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionAccept, ActionReject, ActionNext, ActionPrevious, ActionCheckStatus:
		return a, true
	}
	return "", false
}

// ReviewState binds a browser session to one reviewed dataset file.
// Cursor is in [0, Total]; Cursor == Total means the review is complete.
type ReviewState struct {
	Path         string `msgpack:"path"`
	OriginalName string `msgpack:"name"`
	Cursor       int    `msgpack:"cursor"`
	Total        int    `msgpack:"total"`
}

// Done reports whether the cursor has reached the end of the dataset.
func (r *ReviewState) Done() bool {
	return r.Cursor >= r.Total
}

// Clamp keeps the cursor inside [0, total] and records total.
func (r *ReviewState) Clamp(total int) {
	r.Total = total
	if r.Cursor > total {
		r.Cursor = total
	}
	if r.Cursor < 0 {
		r.Cursor = 0
	}
}

// Advance moves the cursor forward, stopping at Total.
func (r *ReviewState) Advance() {
	if r.Cursor < r.Total {
		r.Cursor++
	}
}

// Retreat moves the cursor back, stopping at zero.
func (r *ReviewState) Retreat() {
	if r.Cursor > 0 {
		r.Cursor--
	}
}
