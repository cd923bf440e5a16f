package stm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullAddressIsInvalid(t *testing.T) {
	assert.False(t, NullAddress.valid())
}

func TestNewAddressRoundTrips(t *testing.T) {
	a := newAddress(3, 128)
	assert.True(t, a.valid())
	assert.EqualValues(t, 3, a.segment())
	assert.EqualValues(t, 128, a.offset())
}

func TestAddressPlusPreservesSegment(t *testing.T) {
	a := newAddress(7, 0)
	b := a.plus(64)
	assert.EqualValues(t, 7, b.segment())
	assert.EqualValues(t, 64, b.offset())

	c := b.plus(64)
	assert.EqualValues(t, 7, c.segment())
	assert.EqualValues(t, 128, c.offset())
}

func TestNewAddressPanicsOnOversizedOffset(t *testing.T) {
	assert.Panics(t, func() {
		newAddress(0, addressOffsetMax+1)
	})
}
