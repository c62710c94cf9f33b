package engine

// CoinsPerLevel is the flat bonus awarded for each level gained.
// TODO: confirm with product whether the flat bonus should taper at high
// levels before anything starts depending on the total coin economy.
const CoinsPerLevel = 50

// Requirement returns the XP needed to advance from the given level.
// Linear curve: level 1 needs 100 XP, level 2 needs 200, and so on.
func Requirement(level int) int {
	if level < 1 {
		level = 1
	}
	return level * 100
}

// ApplyResult is the outcome of one XP application.
type ApplyResult struct {
	Updated      UserProgress
	LevelsGained int
	BonusCoins   int
	Events       []LevelUpEvent
}

// ApplyXP applies an XP delta to a progress record and resolves the level-up
// cascade. A single large grant can cross several thresholds, so this loops
// until the remaining XP is below the current level's requirement.
//
// Precondition: xpGained >= 0. Negative grants are a caller bug and are
// rejected before reaching this function.
//
// Postcondition: Updated.CurrentXP < Requirement(Updated.Level).
func ApplyXP(p UserProgress, xpGained int) ApplyResult {
	if p.Level < 1 {
		p.Level = 1
	}
	p.CurrentXP += xpGained

	res := ApplyResult{}
	for p.CurrentXP >= Requirement(p.Level) {
		p.CurrentXP -= Requirement(p.Level)
		p.Level++
		p.Coins += CoinsPerLevel
		res.LevelsGained++
		res.BonusCoins += CoinsPerLevel
		res.Events = append(res.Events, LevelUpEvent{NewLevel: p.Level})
	}

	res.Updated = p
	return res
}

// starThresholds maps cumulative score to star milestones 1..5.
var starThresholds = [...]int{50, 250, 750, 2000, 5000}

// MaxStars is the milestone cap.
const MaxStars = len(starThresholds)

// StarsFor returns the number of star milestones reached for a cumulative
// score. Derived and never persisted; always recomputed from score.
func StarsFor(score int) int {
	stars := 0
	for _, threshold := range starThresholds {
		if score >= threshold {
			stars++
		}
	}
	return stars
}

// NextStarThreshold returns the smallest score threshold above the given
// score. ok is false once all stars are earned.
func NextStarThreshold(score int) (threshold int, ok bool) {
	for _, t := range starThresholds {
		if score < t {
			return t, true
		}
	}
	return 0, false
}
