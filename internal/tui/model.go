package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mealquest/internal/engine"
	"mealquest/internal/tracker"
	"mealquest/internal/ui"
)

// taskKeys maps dashboard number keys to completable task types.
var taskKeys = []engine.TaskType{
	engine.TaskMeal,
	engine.TaskShopping,
	engine.TaskCooking,
	engine.TaskExercise,
	engine.TaskWater,
	engine.TaskDailyCheckin,
	engine.TaskAIChat,
}

type dashModel struct {
	ctx context.Context
	tr  *tracker.Tracker

	width  int
	height int

	progress engine.UserProgress
	pending  int
	online   bool
	streak   int

	lastLog string
}

type tickMsg time.Time

type completedMsg struct {
	taskType engine.TaskType
	res      engine.ApplyResult
	err      error
}

type flushedMsg struct{}

func newDashModel(ctx context.Context, tr *tracker.Tracker) dashModel {
	return dashModel{
		ctx:      ctx,
		tr:       tr,
		progress: tr.Progress(),
		pending:  tr.PendingUpdateCount(),
		online:   tr.Online(),
		lastLog:  "Ready.",
	}
}

func (m dashModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m dashModel) completeCmd(tt engine.TaskType) tea.Cmd {
	streak := m.streak
	return func() tea.Msg {
		res, err := m.tr.CompleteTask(engine.TaskRewardSpec{Type: tt}, streak)
		return completedMsg{taskType: tt, res: res, err: err}
	}
}

func (m dashModel) flushCmd() tea.Cmd {
	return func() tea.Msg {
		m.tr.Flush(m.ctx)
		return flushedMsg{}
	}
}

func (m dashModel) refresh() dashModel {
	m.progress = m.tr.Progress()
	m.pending = m.tr.PendingUpdateCount()
	m.online = m.tr.Online()
	return m
}

func (m dashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		return m.refresh(), tickCmd()
	case completedMsg:
		m = m.refresh()
		if msg.err != nil {
			m.lastLog = "Complete failed: " + msg.err.Error()
			return m, nil
		}
		xp := engine.RewardFor(msg.taskType, m.streak)
		m.lastLog = fmt.Sprintf("%s %s: +%d XP", ui.TaskIcon(string(msg.taskType)), msg.taskType, xp)
		if msg.res.LevelsGained > 0 {
			m.lastLog += fmt.Sprintf("  %s → level %d (+%d coins)", ui.BadgeLevelUp, msg.res.Updated.Level, msg.res.BonusCoins)
		}
		return m, nil
	case flushedMsg:
		m = m.refresh()
		m.lastLog = "Flushed pending updates."
		return m, nil
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "o":
			m.tr.SetOnline(!m.tr.Online())
			m = m.refresh()
			m.lastLog = "Connectivity toggled."
			return m, nil
		case "f":
			if !m.online {
				m.lastLog = "Offline; updates stay queued."
				return m, nil
			}
			m.lastLog = "Flushing…"
			return m, m.flushCmd()
		case "g":
			if err := m.tr.ClaimGift(); err != nil {
				m.lastLog = "Gift: " + err.Error()
			} else {
				m.lastLog = ui.IconGift + " Gift claimed!"
			}
			return m.refresh(), nil
		case "+":
			m.streak++
			m.lastLog = fmt.Sprintf("Streak set to %d days.", m.streak)
			return m, nil
		case "-":
			if m.streak > 0 {
				m.streak--
			}
			m.lastLog = fmt.Sprintf("Streak set to %d days.", m.streak)
			return m, nil
		default:
			if n := int(key[0] - '1'); len(key) == 1 && n >= 0 && n < len(taskKeys) {
				tt := taskKeys[n]
				m.lastLog = fmt.Sprintf("Completing %s…", tt)
				return m, m.completeCmd(tt)
			}
		}
	}
	return m, nil
}

func (m dashModel) View() string {
	header := m.renderHeader()
	card := m.renderCard()
	tasks := m.renderTasks()
	footer := "\n" + m.lastLog + "\n"

	return header + "\n\n" + card + "\n\n" + tasks + footer
}

func (m dashModel) renderHeader() string {
	sync := ui.IconSync + " " + ui.SyncText(m.pending)
	return ui.Heading(ui.IconMeal, "MealQuest") + "  " + ui.ConnText(m.online) + "  " + sync
}

func (m dashModel) renderCard() string {
	p := m.progress
	req := engine.Requirement(p.Level)
	stars := engine.StarsFor(p.Score)

	lines := []string{
		ui.LabelValue("Level", p.Level) + "  " + ui.XPBar(p.CurrentXP, req, 24),
		ui.LabelValue("Score", p.Score) + "  " + ui.Stars(stars, engine.MaxStars),
		ui.LabelValue("Coins", fmt.Sprintf("%d %s", p.Coins, ui.IconCoin)),
		ui.LabelValue("Recipes", p.RecipesUnlocked),
	}
	if next, ok := engine.NextStarThreshold(p.Score); ok {
		lines = append(lines, ui.Dim.Render(fmt.Sprintf("next star at %d score", next)))
	}
	return ui.Panel.Render(strings.Join(lines, "\n"))
}

func (m dashModel) renderTasks() string {
	var out []string
	out = append(out, ui.PanelTitle.Render(fmt.Sprintf("Complete a task (streak %d):", m.streak)))
	for i, tt := range taskKeys {
		xp := engine.RewardFor(tt, m.streak)
		out = append(out, fmt.Sprintf("  %d %s %-14s %s", i+1, ui.TaskIcon(string(tt)), tt, ui.Muted.Render(fmt.Sprintf("+%d XP", xp))))
	}
	out = append(out, "")
	out = append(out, ui.Dim.Render("keys: 1-7 complete · +/- streak · o online/offline · f flush · g gift · q quit"))
	return strings.Join(out, "\n")
}
