package engine

import (
	"math"
	"sync"
)

// DefaultBaseXP is the fail-closed reward floor for unrecognized task types.
// Reward computation must never block task completion, so unknown types earn
// the floor instead of erroring.
const DefaultBaseXP = 10

// baseXP is the per-task-type reward table. Reads take the lock; overrides
// swap in a rebuilt copy so an in-progress read never observes a partial
// table. Overrides belong in setup, before any completions are served.
var (
	rewardMu sync.RWMutex
	baseXP   = map[TaskType]int{
		TaskMeal:         15,
		TaskShopping:     20,
		TaskCooking:      30,
		TaskExercise:     40,
		TaskWater:        15,
		TaskDailyCheckin: 20,
		TaskAIChat:       10,
	}
)

// streakTier is one step of the streak multiplier function.
type streakTier struct {
	MinStreak  int
	Multiplier float64
}

// streakTiers is ordered descending; the first tier not exceeding the streak
// length wins.
var streakTiers = []streakTier{
	{30, 3.0},
	{14, 2.0},
	{7, 1.5},
	{3, 1.2},
}

// BaseXPFor returns the table reward for a task type, or DefaultBaseXP for
// unknown types.
func BaseXPFor(t TaskType) int {
	rewardMu.RLock()
	defer rewardMu.RUnlock()
	if xp, ok := baseXP[t]; ok {
		return xp
	}
	return DefaultBaseXP
}

// StreakMultiplier returns the step-function multiplier for a streak length.
// Below 3 consecutive days the multiplier is 1.0.
func StreakMultiplier(streakLength int) float64 {
	for _, tier := range streakTiers {
		if streakLength >= tier.MinStreak {
			return tier.Multiplier
		}
	}
	return 1.0
}

// RewardFor computes the XP award for completing a task with the given streak.
// Pure and deterministic: the same inputs always produce the same award, so
// queued mutations can be replayed safely. Rounding is half-up, which must
// match across clients for award amounts to agree.
func RewardFor(t TaskType, streakLength int) int {
	base := float64(BaseXPFor(t))
	xp := base * StreakMultiplier(streakLength)
	return int(math.Floor(xp + 0.5))
}

// RewardForSpec is RewardFor for a concrete task instance: a spec may carry
// its own base XP, and falls back to the type table when it does not.
func RewardForSpec(spec TaskRewardSpec, streakLength int) int {
	base := spec.XPReward
	if base <= 0 {
		base = BaseXPFor(spec.Type)
	}
	xp := float64(base) * StreakMultiplier(streakLength)
	return int(math.Floor(xp + 0.5))
}

// RewardTable returns a copy of the base reward table, for config overrides
// and status display.
func RewardTable() map[TaskType]int {
	rewardMu.RLock()
	defer rewardMu.RUnlock()
	out := make(map[TaskType]int, len(baseXP))
	for k, v := range baseXP {
		out[k] = v
	}
	return out
}

// SetBaseXP overrides the base reward for a task type by rebuilding the
// table. Config-driven; calls belong in setup, before any tracker is
// serving completions.
func SetBaseXP(t TaskType, xp int) {
	if xp < 0 {
		return
	}
	rewardMu.Lock()
	defer rewardMu.Unlock()
	next := make(map[TaskType]int, len(baseXP)+1)
	for k, v := range baseXP {
		next[k] = v
	}
	next[t] = xp
	baseXP = next
}
