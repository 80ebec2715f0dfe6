package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from IncidentStatus
		to   IncidentStatus
		ok   bool
	}{
		{StatusInProgress, StatusAssigned, true},
		{StatusAssigned, StatusAssigned, true},
		{StatusAssigned, StatusResolved, true},
		{StatusResolved, StatusAssigned, false},
		{StatusResolved, StatusResolved, false},
		{StatusInProgress, StatusResolved, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusInProgress))
	assert.True(t, ValidStatus(StatusAssigned))
	assert.True(t, ValidStatus(StatusResolved))
	assert.False(t, ValidStatus("closed"))
}
