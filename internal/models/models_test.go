package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"", StatusPending, false},
		{"  ", StatusPending, false},
		{"Accepted", StatusAccepted, false},
		{"accepted", StatusAccepted, false},
		{"REJECTED", StatusRejected, false},
		{"maybe", StatusPending, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Pending", StatusPending.Label())
	assert.Equal(t, "Accepted", StatusAccepted.Label())
}

func TestCounts(t *testing.T) {
	var c Counts
	for _, s := range []Status{StatusAccepted, StatusRejected, StatusPending, StatusPending} {
		c.Add(s)
	}
	assert.Equal(t, Counts{Accepted: 1, Rejected: 1, Pending: 2}, c)
	assert.Equal(t, 4, c.Total())
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"Accepted", "Rejected", "Next", "Previous", "CheckStatus"} {
		a, ok := ParseAction(s)
		assert.True(t, ok, s)
		assert.Equal(t, Action(s), a)
	}
	_, ok := ParseAction("Delete")
	assert.False(t, ok)
}

func TestReviewStateCursor(t *testing.T) {
	r := &ReviewState{Total: 2}

	r.Retreat()
	assert.Equal(t, 0, r.Cursor, "retreat at zero is a no-op")

	r.Advance()
	r.Advance()
	assert.True(t, r.Done())
	r.Advance()
	assert.Equal(t, 2, r.Cursor, "advance never passes total")

	r.Cursor = 7
	r.Clamp(3)
	assert.Equal(t, 3, r.Cursor)
	assert.True(t, r.Done())

	r.Cursor = -1
	r.Clamp(3)
	assert.Equal(t, 0, r.Cursor)
}
