package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/century/internal/game"
	"github.com/lox/century/internal/session"
	"github.com/lox/century/internal/store"
)

// Static styles for content elements
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true)

	HandInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	CardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7"))

	EliminatedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Strikethrough(true)

	WinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFD700")).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

func renderStatus(s session.Status) string {
	if s.Message == "" {
		return ""
	}
	switch s.Kind {
	case session.StatusError:
		return ErrorStyle.Render("● " + s.Message)
	case session.StatusSaving:
		return WarningStyle.Render("● " + s.Message)
	default:
		return SuccessStyle.Render("● " + s.Message)
	}
}

// renderStandings lists players in seat order with their points
func renderStandings(v session.View) string {
	var b strings.Builder
	for _, p := range v.Players {
		line := fmt.Sprintf("  %-12s %3d", p.Name, p.Score)
		switch {
		case p.Eliminated:
			line = EliminatedStyle.Render(line + " OUT")
		case p.Name == v.PendingChecker:
			line = WarningStyle.Render(line + " ✓")
		case p.Score >= game.EliminationScore-game.CheckerLossPenalty:
			line = WarningStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderScoreTable draws the per-round grid. lastRounds > 0 keeps only the
// most recent rounds so the table fits in the sidebar.
func renderScoreTable(st game.ScoreTable, lastRounds int) string {
	if len(st.Rows) == 0 {
		return InfoStyle.Render("No game in progress")
	}

	headers := st.Headers
	rows := st.Strings()
	rounds := len(headers) - 2
	if lastRounds > 0 && rounds > lastRounds {
		skip := rounds - lastRounds
		headers = append([]string{headers[0]}, headers[1+skip:]...)
		for i, row := range rows {
			rows[i] = append([]string{row[0]}, row[1+skip:]...)
		}
	}

	eliminated := make(map[int]bool, len(st.Rows))
	for i, row := range st.Rows {
		eliminated[i] = row.Eliminated
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(InfoStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return HandInfoStyle.Padding(0, 1)
			case eliminated[row]:
				return EliminatedStyle.Padding(0, 1)
			default:
				return lipgloss.NewStyle().Padding(0, 1)
			}
		})
	return t.String()
}

// renderGames lists saved games numbered for load and delete
func renderGames(games []store.Metadata) string {
	if len(games) == 0 {
		return InfoStyle.Render("No saved games")
	}
	rows := make([][]string, 0, len(games))
	for i, g := range games {
		state := "in progress"
		if g.IsCompleted {
			state = "won by " + g.WinnerName
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			strings.Join(g.PlayerNames, ", "),
			fmt.Sprintf("%d", g.TotalRounds),
			state,
			g.UpdatedAt.Local().Format("Jan 2 15:04"),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(InfoStyle).
		Headers("#", "Players", "Rounds", "Status", "Saved").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HandInfoStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

// renderCards shows the card values, or the total of the ranks given
func renderCards(ranks []string) string {
	if len(ranks) == 0 {
		return CardStyle.Render("Card values: " + game.CardValueLegend)
	}
	for _, rank := range ranks {
		if _, ok := game.CardValue(rank); !ok {
			return ErrorStyle.Render(fmt.Sprintf("%q is not a card (%s)", rank, game.CardValueLegend))
		}
	}
	total, _ := game.HandValue(ranks...)
	return CardStyle.Render(fmt.Sprintf("%s = %d", strings.Join(ranks, " + "), total))
}
