package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJob_IsTerminal(t *testing.T) {
	cases := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobPending, false},
		{JobRunning, false},
		{JobCompleted, true},
		{JobFailed, true},
		{JobCancelled, true},
	}
	for _, tc := range cases {
		j := &Job{Status: tc.status}
		assert.Equal(t, tc.terminal, j.IsTerminal(), "status %s", tc.status)
	}
}
