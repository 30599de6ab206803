package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/bankrec/internal/accounts"
	"github.com/cleared-dev/bankrec/internal/auditlog"
	"github.com/cleared-dev/bankrec/internal/config"
	"github.com/cleared-dev/bankrec/internal/gitops"
	"github.com/cleared-dev/bankrec/internal/logger"
	"github.com/cleared-dev/bankrec/internal/metrics"
	"github.com/cleared-dev/bankrec/internal/model"
	"github.com/cleared-dev/bankrec/internal/reconcile"
	"github.com/cleared-dev/bankrec/internal/store/csvstore"
	"github.com/cleared-dev/bankrec/internal/store/postgres"
)

// recordStore is what the CLI needs from a store beyond the session's view.
type recordStore interface {
	reconcile.Store
	AppendTransactions(ctx context.Context, txns []model.Transaction) (int, error)
	AppendCandidates(ctx context.Context, cands []model.Candidate) (int, error)
}

// app is everything a subcommand works with, built from bankrec.yaml.
type app struct {
	root     string
	cfg      *config.Config
	log      zerolog.Logger
	accounts *accounts.Service
	store    recordStore
	closers  []func() error
}

func openApp(ctx context.Context, opts *globalOptions) (*app, error) {
	root, err := filepath.Abs(opts.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	metrics.Init()

	a := &app{
		root:     root,
		cfg:      cfg,
		log:      log,
		accounts: accounts.FromConfig(cfg),
	}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, a.cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		s := postgres.New(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return err
		}
		a.store = s
		a.closers = append(a.closers, db.Close)
	default:
		opts := []csvstore.Option{csvstore.WithLogger(a.log)}
		if a.cfg.Git.AutoCommit {
			opts = append(opts, csvstore.WithAutoCommit(gitops.Author{
				Name:  a.cfg.Git.AuthorName,
				Email: a.cfg.Git.AuthorEmail,
			}))
		}
		a.store = csvstore.New(a.root, opts...)
	}
	a.log.Debug().Str("driver", a.cfg.Store.Driver).Msg("record store opened")
	return nil
}

func (a *app) newSession() *reconcile.Session {
	s := reconcile.NewSession(a.store,
		reconcile.WithAccounts(a.accounts),
		reconcile.WithLogger(a.log),
		reconcile.WithRecorder(auditlog.NewWriter(a.root)),
	)
	a.log.Debug().Str("session", s.ID()).Msg("session started")
	return s
}

// close writes the metrics textfile, if configured, and releases the store.
func (a *app) close() {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.root, path)
		}
		if err := metrics.WriteTextfile(path); err != nil {
			a.log.Warn().Err(err).Msg("metrics not written")
		}
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn().Err(err).Msg("closing store")
		}
	}
}

// dateRange parses --from/--to.
func dateRange(from, to string) (civil.Date, civil.Date, error) {
	f, err := civil.ParseDate(from)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("parsing --from %q: %w", from, err)
	}
	t, err := civil.ParseDate(to)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("parsing --to %q: %w", to, err)
	}
	return f, t, nil
}
