package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// MealQuest theme (CLI + TUI).
// Kept intentionally small: reusable styles and a few emojis.

const (
	IconMeal     = "🍽️"
	IconShopping = "🛒"
	IconCooking  = "🍳"
	IconExercise = "🏃"
	IconWater    = "💧"
	IconCheckin  = "📅"
	IconChat     = "💬"
	IconStar     = "⭐"
	IconCoin     = "🪙"
	IconBolt     = "⚡"
	IconSync     = "🔁"
	IconOnline   = "🌐"
	IconOffline  = "📴"
	IconGift     = "🎁"
	IconWarn     = "⚠️"
	IconError    = "🧨"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)
	Dim   = lipgloss.NewStyle().Foreground(cMuted)

	Panel      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)

	BadgeLevelUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// SyncText colors the pending-update indicator: green when everything is
// confirmed, orange while updates wait for the server.
func SyncText(pending int) string {
	if pending == 0 {
		return Good.Render("synced")
	}
	return Warn.Render(fmt.Sprintf("%d pending", pending))
}

// ConnText renders the connectivity belief.
func ConnText(online bool) string {
	if online {
		return Good.Render(IconOnline + " online")
	}
	return Bad.Render(IconOffline + " offline")
}

// Stars renders earned stars out of the maximum, e.g. "⭐⭐⭐☆☆".
func Stars(earned, max int) string {
	var b strings.Builder
	for i := 0; i < max; i++ {
		if i < earned {
			b.WriteString("★")
		} else {
			b.WriteString("☆")
		}
	}
	return Gold.Render(b.String())
}

// XPBar renders a fixed-width progress bar toward the next level.
func XPBar(current, required, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	if required > 0 {
		filled = current * width / required
	}
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return H2.Render(bar) + Muted.Render(fmt.Sprintf(" %d/%d", current, required))
}

func TaskIcon(taskType string) string {
	switch strings.ToUpper(strings.TrimSpace(taskType)) {
	case "MEAL":
		return IconMeal
	case "SHOPPING":
		return IconShopping
	case "COOKING":
		return IconCooking
	case "EXERCISE":
		return IconExercise
	case "WATER":
		return IconWater
	case "DAILY_CHECKIN":
		return IconCheckin
	case "AI_CHAT":
		return IconChat
	default:
		return IconStar
	}
}
