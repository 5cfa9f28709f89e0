package cli

import (
	"fmt"

	"pulse/internal/config"
	"pulse/internal/identity"
	"pulse/internal/metrics"
	"pulse/internal/repository"
	"pulse/internal/session"
	"pulse/internal/storage"
	"pulse/internal/transport"
	"pulse/internal/wire"
)

// app is the wired client: local store, session, transport and repositories.
type app struct {
	cfg      *config.Config
	store    *storage.BoltStore
	session  *session.Session
	client   *transport.Client
	repos    *repository.Repositories
	identity *identity.Manager
	metrics  *metrics.Collector
}

// openApp opens the local store and restores the stored user into the
// session. The profile is not fetched.
func openApp(cfg *config.Config) (*app, error) {
	collector := metrics.NewCollector()

	store, err := storage.Open(cfg.Storage.Path, collector)
	if err != nil {
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}

	sess := session.New()
	client := transport.New(cfg.API, cfg.Retry, sess, transport.WithObserver(collector))
	repos := repository.New(client, wire.NewMapper())
	manager := identity.NewManager(sess, store, repos.Users)

	if _, err := manager.RestoreSession(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	return &app{
		cfg:      cfg,
		store:    store,
		session:  sess,
		client:   client,
		repos:    repos,
		identity: manager,
		metrics:  collector,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
