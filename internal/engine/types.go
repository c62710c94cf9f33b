package engine

import (
	"strings"
	"time"
)

type TaskType string

const (
	TaskMeal         TaskType = "MEAL"
	TaskShopping     TaskType = "SHOPPING"
	TaskCooking      TaskType = "COOKING"
	TaskExercise     TaskType = "EXERCISE"
	TaskWater        TaskType = "WATER"
	TaskDailyCheckin TaskType = "DAILY_CHECKIN"
	TaskAIChat       TaskType = "AI_CHAT"
)

func (t TaskType) IsValid() bool {
	switch t {
	case TaskMeal, TaskShopping, TaskCooking, TaskExercise, TaskWater, TaskDailyCheckin, TaskAIChat:
		return true
	default:
		return false
	}
}

// ParseTaskType normalizes user input to a TaskType. Unknown input is kept
// as-is (uppercased); the reward table fails closed for it rather than erroring.
func ParseTaskType(input string) TaskType {
	s := strings.TrimSpace(strings.ToUpper(input))
	return TaskType(strings.ReplaceAll(s, "-", "_"))
}

// UserProgress is the per-user progression record. It is mutated exclusively
// through ApplyXP and patch application, and never deleted.
type UserProgress struct {
	Score           int  `json:"score"`
	Coins           int  `json:"coins"`
	RecipesUnlocked int  `json:"recipesUnlocked"`
	HasClaimedGift  bool `json:"hasClaimedGift"`
	Level           int  `json:"level"`
	CurrentXP       int  `json:"currentXP"`
}

// NewUserProgress returns the defaults used on a user's first session.
func NewUserProgress() UserProgress {
	return UserProgress{Level: 1}
}

// UserProfile holds display data synced alongside progress.
type UserProfile struct {
	UserName string `json:"userName"`
	DietType string `json:"dietType"`
	BodyType string `json:"bodyType"`
}

// TaskRewardSpec is the static reward definition for one task instance.
type TaskRewardSpec struct {
	TaskID      string   `json:"taskId"`
	Type        TaskType `json:"taskType"`
	ScoreReward int      `json:"scoreReward"`
	CoinReward  int      `json:"coinReward"`
	XPReward    int      `json:"xpReward"`
}

// StreakState tracks consecutive qualifying days for a task type. Only the
// numeric count feeds the reward multiplier.
type StreakState struct {
	CurrentCount int       `json:"currentCount"`
	IsActive     bool      `json:"isActive"`
	LastActivity time.Time `json:"lastActivity"`
}

// LevelUpEvent is emitted once per level crossed in a single XP application.
type LevelUpEvent struct {
	NewLevel int
}

// ProgressPatch is a partial UserProgress. Nil fields are left untouched on
// merge, which is what makes duplicate delivery of a queued update safe.
type ProgressPatch struct {
	Score           *int  `json:"score,omitempty"`
	Coins           *int  `json:"coins,omitempty"`
	RecipesUnlocked *int  `json:"recipesUnlocked,omitempty"`
	HasClaimedGift  *bool `json:"hasClaimedGift,omitempty"`
	Level           *int  `json:"level,omitempty"`
	CurrentXP       *int  `json:"currentXP,omitempty"`
}

// IsZero reports whether the patch would change nothing.
func (p ProgressPatch) IsZero() bool {
	return p.Score == nil && p.Coins == nil && p.RecipesUnlocked == nil &&
		p.HasClaimedGift == nil && p.Level == nil && p.CurrentXP == nil
}

// ApplyTo merges the patch's set fields into dst.
func (p ProgressPatch) ApplyTo(dst *UserProgress) {
	if p.Score != nil {
		dst.Score = *p.Score
	}
	if p.Coins != nil {
		dst.Coins = *p.Coins
	}
	if p.RecipesUnlocked != nil {
		dst.RecipesUnlocked = *p.RecipesUnlocked
	}
	if p.HasClaimedGift != nil {
		dst.HasClaimedGift = *p.HasClaimedGift
	}
	if p.Level != nil {
		dst.Level = *p.Level
	}
	if p.CurrentXP != nil {
		dst.CurrentXP = *p.CurrentXP
	}
}

// PatchFromProgress builds a full-record patch, used when syncing the whole
// optimistic state after a local apply.
func PatchFromProgress(p UserProgress) ProgressPatch {
	score, coins, recipes := p.Score, p.Coins, p.RecipesUnlocked
	gift, level, xp := p.HasClaimedGift, p.Level, p.CurrentXP
	return ProgressPatch{
		Score:           &score,
		Coins:           &coins,
		RecipesUnlocked: &recipes,
		HasClaimedGift:  &gift,
		Level:           &level,
		CurrentXP:       &xp,
	}
}

// ProfilePatch is a partial UserProfile.
type ProfilePatch struct {
	UserName *string `json:"userName,omitempty"`
	DietType *string `json:"dietType,omitempty"`
	BodyType *string `json:"bodyType,omitempty"`
}

func (p ProfilePatch) IsZero() bool {
	return p.UserName == nil && p.DietType == nil && p.BodyType == nil
}

// ApplyTo merges the patch's set fields into dst.
func (p ProfilePatch) ApplyTo(dst *UserProfile) {
	if p.UserName != nil {
		dst.UserName = *p.UserName
	}
	if p.DietType != nil {
		dst.DietType = *p.DietType
	}
	if p.BodyType != nil {
		dst.BodyType = *p.BodyType
	}
}
