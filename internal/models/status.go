// Package models contains domain types for the link review service.
package models

import (
	"fmt"
	"strings"
)

// Status is the review decision recorded for a single row.
type Status string

const (
	StatusPending  Status = ""
	StatusAccepted Status = "Accepted"
	StatusRejected Status = "Rejected"
)

// ParseStatus validates a stored or submitted status value.
// Matching is case-insensitive and surrounding whitespace is ignored.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return StatusPending, nil
	case "accepted":
		return StatusAccepted, nil
	case "rejected":
		return StatusRejected, nil
	}
	return StatusPending, fmt.Errorf("unknown status %q", s)
}

// Label returns a human readable name, "Pending" for the empty status.
func (s Status) Label() string {
	if s == StatusPending {
		return "Pending"
	}
	return string(s)
}

// Counts aggregates row statuses of a dataset.
type Counts struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

// Add records one row with the given status.
func (c *Counts) Add(s Status) {
	switch s {
	case StatusAccepted:
		c.Accepted++
	case StatusRejected:
		c.Rejected++
	default:
		c.Pending++
	}
}

// Total returns the number of rows counted.
func (c Counts) Total() int {
	return c.Accepted + c.Rejected + c.Pending
}
