package teacher

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialTargetInMediumRange(t *testing.T) {
	tc := New(rand.New(rand.NewSource(1)))
	target := tc.ChooseInitialTarget()
	assert.GreaterOrEqual(t, target, 0)
	assert.LessOrEqual(t, target, levels[Medium].rangeMax)
	assert.Equal(t, Medium, tc.level)
}

func TestEvaluateMatchesTarget(t *testing.T) {
	tc := New(rand.New(rand.NewSource(1)))
	target := tc.ChooseInitialTarget()
	assert.True(t, tc.Evaluate(target))
	assert.Equal(t, 1, tc.AttemptsOnTarget())
}

func TestUpgradeAfterQuickSuccessStreak(t *testing.T) {
	tc := New(rand.New(rand.NewSource(7)))
	require.Equal(t, Medium, tc.level)

	for i := 0; i < 3; i++ {
		target := tc.target
		require.True(t, tc.Evaluate(target), "attempt %d", i)
		tc.NextTarget(true)
	}
	assert.Equal(t, Hard, tc.level)
}

func TestDowngradeAfterStruggleStreak(t *testing.T) {
	tc := New(rand.New(rand.NewSource(3)))
	tc.level = Hard
	params := levels[Hard]

	for round := 0; round < 2; round++ {
		for i := 0; i < params.maxAttemptsBeforeStruggle; i++ {
			tc.Evaluate(tc.target + 1000) // never matches
		}
		tc.NextTarget(false)
	}
	assert.Equal(t, Medium, tc.level)
}

func TestResetClearsStreaks(t *testing.T) {
	tc := New(rand.New(rand.NewSource(1)))
	tc.quickSuccessStreak = 2
	tc.struggleStreak = 1
	tc.level = Hard

	tc.Reset()
	assert.Equal(t, Medium, tc.level)
	assert.Equal(t, 0, tc.quickSuccessStreak)
	assert.Equal(t, 0, tc.struggleStreak)
	assert.Equal(t, 0, tc.AttemptsOnTarget())
}
