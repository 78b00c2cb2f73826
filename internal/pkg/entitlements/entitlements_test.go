package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartingCredits(t *testing.T) {
	assert.Equal(t, 3, StartingCredits(TierFree))
	assert.Equal(t, ReplenishCredits(TierPro), StartingCredits(TierPro))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, TierPro, Normalize(" pro "))
	assert.Equal(t, TierFree, Normalize("FREE"))
	assert.Equal(t, TierFree, Normalize(""))
	assert.Equal(t, TierFree, Normalize("enterprise"))
}
