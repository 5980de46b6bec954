package main

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/century/internal/session"
	"github.com/lox/century/internal/spectate"
	"github.com/lox/century/internal/tui"
)

// PlayCmd runs the interactive scorekeeper
type PlayCmd struct {
	LogFile string   `kong:"help='Write logs to this file (defaults to config, or century.log with --debug)'"`
	Players []string `kong:"arg,optional,help='Players to add to the setup roster'"`
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}

	logPath := c.LogFile
	if logPath == "" {
		logPath = cfg.Log.File
	}
	if logPath == "" && g.Debug {
		logPath = "century.log"
	}
	w, closeLog, err := openLogFile(logPath)
	if err != nil {
		return err
	}
	defer closeLog()

	logger, charm := loggers(cfg, w, g.Debug)
	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := signIn(ctx, cfg, logger)
	if err != nil {
		return err
	}

	bridge := tui.NewBridge()
	opts := []session.Option{
		session.WithNotifier(bridge),
		session.WithConfirmer(bridge),
		session.WithListener(bridge),
	}

	var hub *spectate.Hub
	if cfg.Spectate.Address != "" {
		hub = spectate.NewHub(charm, quartz.NewReal())
		opts = append(opts, session.WithListener(hub))
	}

	ctrl := session.New(st, logger, session.Config{
		AutoSave:      cfg.AutoSave.Enabled,
		AutoSaveDelay: cfg.AutoSave.Delay,
		StatusRevert:  cfg.Status.Revert,
	}, opts...)
	defer ctrl.Close()

	ctrl.SetIdentity(id)
	for _, name := range c.Players {
		if err := ctrl.AddPlayer(name); err != nil {
			return err
		}
	}

	logger.Info().
		Str("backend", cfg.Store.Backend).
		Bool("autosave", cfg.AutoSave.Enabled).
		Dur("autosave_delay", cfg.AutoSave.Delay).
		Str("spectate", cfg.Spectate.Address).
		Msg("Starting Century")

	model := tui.NewModel(ctx, ctrl, charm)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(program)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer cancel()
		defer bridge.Detach()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	if hub != nil {
		eg.Go(func() error {
			return hub.Serve(egCtx, cfg.Spectate.Address)
		})
	}

	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}
