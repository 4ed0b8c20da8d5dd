package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Elenyx/discordrpg/cli"
	"github.com/Elenyx/discordrpg/config"
	"github.com/Elenyx/discordrpg/engine"
	"github.com/Elenyx/discordrpg/engine/events"
	"github.com/Elenyx/discordrpg/engine/quest"
	"github.com/Elenyx/discordrpg/engine/rng"
	"github.com/Elenyx/discordrpg/engine/tokens"
	"github.com/Elenyx/discordrpg/loader"
	"github.com/Elenyx/discordrpg/quests/romancedawn"
	"github.com/Elenyx/discordrpg/storage/sqlite"
	"github.com/Elenyx/discordrpg/tui"
)

type appOptions struct {
	dotenv string
	actor  string
	stderr io.Writer
}

// app holds the wired runtime: store, manager and the console session.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	db      *sqlite.Store
	session *cli.Session
	cancel  context.CancelFunc
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(opts.dotenv)
	if err != nil {
		return nil, err
	}
	if opts.actor != "" {
		cfg.ActorID = opts.actor
	}
	logger, err := config.NewLogger(cfg, opts.stderr)
	if err != nil {
		return nil, err
	}
	balance, err := config.LoadBalance(cfg.BalanceFile)
	if err != nil {
		return nil, err
	}

	reg, err := buildRegistry(cfg.QuestDir)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	store := tokens.NewStore(tokens.WithTTL(cfg.TokenTTL))
	store.StartJanitor(ctx, cfg.TokenTTL)

	var source rng.Source = rng.NewTimeSeeded()
	if cfg.RNGSeed != 0 {
		source = rng.New(cfg.RNGSeed)
	}

	rec := &events.Recorder{}
	mgr, err := engine.NewManager(reg, engine.Options{
		Store:        db,
		Tokens:       store,
		RNG:          source,
		Curve:        balance.Curve(),
		Encounters:   balance.QuestEncounters(),
		DefaultQuest: cfg.DefaultQuest,
		Logger:       logger,
		Listeners:    []events.Listener{events.LogListener(logger), rec},
	})
	if err != nil {
		cancel()
		_ = db.Close()
		return nil, err
	}

	logger.Info("questbot ready",
		slog.String("db", cfg.DBPath),
		slog.Any("quests", reg.IDs()),
		slog.String("actor", cfg.ActorID),
	)
	return &app{
		cfg:     cfg,
		log:     logger,
		db:      db,
		session: cli.NewSession(mgr, cfg.ActorID, balance, rec),
		cancel:  cancel,
	}, nil
}

// buildRegistry registers the embedded romance_dawn quest, or the quests
// found in dir when it is set. A romance_dawn definition in dir keeps its
// scripted encounters; other quests run on their authored data alone.
func buildRegistry(dir string) (*engine.Registry, error) {
	if dir == "" {
		q, err := romancedawn.New()
		if err != nil {
			return nil, err
		}
		return engine.NewRegistry(q)
	}

	defs, err := loader.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load quests: %w", err)
	}
	var qs []quest.Type
	for _, def := range defs {
		if def.ID == romancedawn.ID {
			qs = append(qs, romancedawn.FromDefinition(def))
			continue
		}
		qs = append(qs, quest.Base{Def: def})
	}
	return engine.NewRegistry(qs...)
}

func (a *app) console() *cli.CLI {
	return cli.New(a.session)
}

func (a *app) tui(ctx context.Context) error {
	return tui.Run(ctx, a.session)
}

// Close stops the token janitor and closes the database.
func (a *app) Close() error {
	a.cancel()
	if err := a.db.Close(); err != nil {
		a.log.Warn("close database", slog.Any("error", err))
		return err
	}
	return nil
}
