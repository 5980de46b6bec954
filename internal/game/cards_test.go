package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardValue(t *testing.T) {
	tests := []struct {
		rank string
		want int
		ok   bool
	}{
		{"A", 1, true},
		{"7", 7, true},
		{"10", 10, true},
		{"j", 0, true},
		{"Q", 20, true},
		{" K ", 20, true},
		{"Z", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.rank, func(t *testing.T) {
			got, ok := CardValue(tt.rank)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandValue(t *testing.T) {
	total, ok := HandValue("A", "10", "Q", "J")
	assert.True(t, ok)
	assert.Equal(t, 31, total)

	_, ok = HandValue("A", "X")
	assert.False(t, ok)
}
