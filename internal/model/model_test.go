package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketTypeRemaining(t *testing.T) {
	tt := TicketType{Capacity: 10, Sold: 3}
	assert.Equal(t, uint32(7), tt.Remaining())

	tt.Sold = 10
	assert.Equal(t, uint32(0), tt.Remaining())

	// Sold past capacity must never underflow.
	tt.Sold = 11
	assert.Equal(t, uint32(0), tt.Remaining())
}

func TestValidCategory(t *testing.T) {
	for _, c := range EventCategories {
		assert.True(t, ValidCategory(c), c)
	}
	assert.False(t, ValidCategory("music"))
	assert.False(t, ValidCategory(""))
	assert.False(t, ValidCategory("FOOD"))
}
