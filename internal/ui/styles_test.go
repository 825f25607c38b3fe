package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name               string
		done, total, width int
		want               string
	}{
		{"half", 1, 2, 4, "[██░░] 1/2"},
		{"complete", 3, 3, 3, "[███] 3/3"},
		{"empty list", 0, 0, 4, "[░░░░] 0/0"},
		{"default width", 0, 1, 0, "[" + strings.Repeat("░", 28) + "] 0/1"},
		{"over total is clamped", 5, 2, 4, "[████] 5/2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProgressBar(tt.done, tt.total, tt.width))
		})
	}
}

