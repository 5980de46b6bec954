package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog"

	"github.com/lox/century/internal/auth"
	"github.com/lox/century/internal/game"
	"github.com/lox/century/internal/session"
	"github.com/lox/century/internal/store"
)

// GamesCmd groups the saved-game subcommands
type GamesCmd struct {
	List   GamesListCmd   `cmd:"" default:"1" help:"List your saved games"`
	Show   GamesShowCmd   `cmd:"" help:"Show the score table of a saved game"`
	Delete GamesDeleteCmd `cmd:"" help:"Delete a saved game"`
}

type GamesListCmd struct{}

type GamesShowCmd struct {
	ID string `kong:"arg,help='Saved game id'"`
}

type GamesDeleteCmd struct {
	ID  string `kong:"arg,help='Saved game id'"`
	Yes bool   `kong:"short='y',help='Do not ask for confirmation'"`
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

// gamesEnv is what every games subcommand needs
type gamesEnv struct {
	ctx    context.Context
	logger zerolog.Logger
	store  store.Store
	id     *auth.Identity
	close  func()
}

func openGamesEnv(g *Globals) (*gamesEnv, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	logger, _ := loggers(cfg, os.Stderr, g.Debug)
	if !g.Debug {
		logger = logger.Level(zerolog.WarnLevel)
	}
	ctx, cancel := setupSignalHandler(logger)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}
	id, err := signIn(ctx, cfg, logger)
	if err != nil {
		st.Close()
		cancel()
		return nil, err
	}
	return &gamesEnv{
		ctx:    ctx,
		logger: logger,
		store:  st,
		id:     id,
		close: func() {
			st.Close()
			cancel()
		},
	}, nil
}

func (c *GamesListCmd) Run(g *Globals) error {
	env, err := openGamesEnv(g)
	if err != nil {
		return err
	}
	defer env.close()

	games, err := env.store.List(env.ctx, env.id.UserID)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Println("No saved games")
		return nil
	}
	fmt.Println(gamesTable(games))
	return nil
}

func gamesTable(games []store.Metadata) string {
	rows := make([][]string, 0, len(games))
	for _, m := range games {
		status := "in progress"
		if m.IsCompleted {
			status = "won by " + m.WinnerName
		}
		rows = append(rows, []string{
			m.ID,
			strings.Join(m.PlayerNames, ", "),
			fmt.Sprintf("%d", m.TotalRounds),
			status,
			m.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Players", "Rounds", "Status", "Saved").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

func (c *GamesShowCmd) Run(g *Globals) error {
	env, err := openGamesEnv(g)
	if err != nil {
		return err
	}
	defer env.close()

	rec, err := env.store.Get(env.ctx, c.ID)
	if err == nil && rec.UserID != env.id.UserID {
		err = store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("saved game %s: %w", c.ID, err)
	}

	state, err := session.DecodeState(rec.State)
	if err != nil {
		return err
	}
	roster, ledger, started, err := state.Restore()
	if err != nil {
		return err
	}

	fmt.Printf("Game %s\n", rec.ID)
	fmt.Printf("Started %s, saved %s\n",
		started.Local().Format("2006-01-02 15:04"),
		rec.UpdatedAt.Local().Format("2006-01-02 15:04"))
	if winner, ok := roster.Winner(); ok {
		fmt.Printf("%s won after %d rounds\n", winner.Name, ledger.Len())
	}

	st := game.BuildScoreTable(roster, ledger)
	fmt.Println(table.New().
		Border(lipgloss.NormalBorder()).
		Headers(st.Headers...).
		Rows(st.Strings()...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(st.Rows) && st.Rows[row].Eliminated {
				return lipgloss.NewStyle().Padding(0, 1).Strikethrough(true)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String())
	return nil
}

func (c *GamesDeleteCmd) Run(g *Globals) error {
	env, err := openGamesEnv(g)
	if err != nil {
		return err
	}
	defer env.close()

	var confirmer session.Confirmer = session.AutoConfirm
	if !c.Yes {
		confirmer = promptConfirmer(os.Stdin, os.Stdout)
	}

	ctrl := session.New(env.store, env.logger, session.DefaultConfig(),
		session.WithConfirmer(confirmer),
		session.WithNotifier(printNotifier{w: os.Stdout}),
	)
	defer ctrl.Close()
	ctrl.SetIdentity(env.id)

	return ctrl.DeleteGame(env.ctx, c.ID)
}

// promptConfirmer asks on out and reads a y/N answer from in
func promptConfirmer(in io.Reader, out io.Writer) session.Confirmer {
	reader := bufio.NewReader(in)
	return session.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})
}

// printNotifier writes notifications as plain lines
type printNotifier struct {
	w io.Writer
}

func (p printNotifier) Notify(msg string, sev session.Severity) {
	fmt.Fprintln(p.w, msg)
}

func (p printNotifier) Status(session.Status) {}
