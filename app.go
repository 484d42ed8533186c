package main

import (
	"context"
	"fmt"
	"time"

	"taskboard/auth"
	"taskboard/config"
	"taskboard/database"
	"taskboard/firebase"
	"taskboard/handlers"
	"taskboard/models"
	"taskboard/session"
	"taskboard/tasks"
	"taskboard/utilities"
)

// backend is a store able to hold both users and tasks.
type backend interface {
	auth.UserStore
	tasks.Store
	Close() error
}

type application struct {
	cfg      *config.Config
	store    backend
	sessions session.Store
	service  *tasks.Service
	gate     *auth.Gate
}

// openBackend connects the store named by DB_DRIVER, migrating SQL databases first.
func openBackend(ctx context.Context, cfg *config.Config) (backend, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := database.ConnectPostgres(cfg.Postgres.DSN())
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db, database.Postgres); err != nil {
			_ = db.Close()
			return nil, err
		}
		return database.NewStore(db, database.Postgres), nil
	case config.DriverFirestore:
		client, err := firebase.GetFirestoreClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, err
		}
		return firebase.NewStore(client), nil
	default:
		db, err := database.ConnectSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db, database.SQLite); err != nil {
			_ = db.Close()
			return nil, err
		}
		return database.NewStore(db, database.SQLite), nil
	}
}

func openSessions(ctx context.Context, cfg *config.Config) (session.Store, error) {
	if cfg.SessionStore == config.SessionStoreRedis {
		client, err := session.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		utilities.LogInfo("Sessions stored in Redis at %s", cfg.RedisAddr)
		return session.NewRedisStore(client), nil
	}
	utilities.LogInfo("Sessions stored in memory")
	return session.NewMemoryStore(), nil
}

func newService(store tasks.Store, cfg *config.Config) (*tasks.Service, error) {
	policy, err := tasks.PolicyByName(cfg.AuthzPolicy)
	if err != nil {
		return nil, err
	}
	return tasks.NewService(store, tasks.Options{
		Priorities:          models.NewPrioritySet(cfg.TaskPriorities),
		DefaultPriority:     models.Priority(cfg.DefaultPriority),
		Policy:              policy,
		PersonalFallbackAll: cfg.PersonalScopeFallback == config.FallbackAll,
	}), nil
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	store, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}
	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}
	svc, err := newService(store, cfg)
	if err != nil {
		_ = store.Close()
		_ = sessions.Close()
		return nil, err
	}

	return &application{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		service:  svc,
		gate:     auth.NewGate(store, auth.NewBcryptHasher(cfg.BcryptCost)),
	}, nil
}

func (a *application) handler() *handlers.Handler {
	manager := session.NewManager(a.sessions, a.cfg.SessionCookieName, a.cfg.SessionCookieSecure, a.cfg.SessionTTL)
	return handlers.New(a.gate, a.service, manager)
}

// runSweeper drops expired in-memory sessions until ctx ends.
func (a *application) runSweeper(ctx context.Context) {
	if mem, ok := a.sessions.(*session.MemoryStore); ok {
		go mem.RunSweeper(ctx, time.Minute)
	}
}

func (a *application) Close() error {
	sessErr := a.sessions.Close()
	if err := a.store.Close(); err != nil {
		return err
	}
	return sessErr
}
