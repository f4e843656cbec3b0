// Package app wires the client's services together.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/nfrund/podclient/internal/api"
	"github.com/nfrund/podclient/internal/config"
	"github.com/nfrund/podclient/internal/notify"
	"github.com/nfrund/podclient/internal/realtime"
	"github.com/nfrund/podclient/internal/session"
	"github.com/nfrund/podclient/internal/tokenstore"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
)

// App holds the services a command needs.
type App struct {
	Config   *config.Config
	Tokens   *tokenstore.FileStore
	API      *api.Client
	Session  *session.Store
	Realtime *realtime.Client
	Notifier notify.Notifier

	injector do.Injector
}

// NewInjector registers every service. Banners go to out; the token is kept
// on fs under cfg.TokenDir.
func NewInjector(cfg *config.Config, out io.Writer, fs afero.Fs) do.Injector {
	i := do.New()

	do.ProvideValue(i, cfg)
	do.ProvideValue(i, fs)
	do.ProvideValue[notify.Notifier](i, notify.NewBanner(out))

	do.Provide(i, func(i do.Injector) (*tokenstore.FileStore, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return tokenstore.NewFileStore(do.MustInvoke[afero.Fs](i), cfg.TokenDir), nil
	})

	do.Provide(i, func(i do.Injector) (*api.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		tokens := do.MustInvoke[*tokenstore.FileStore](i)
		return api.New(cfg.APIBaseURL, cfg.RequestTimeout, tokens), nil
	})

	do.Provide(i, func(i do.Injector) (*session.Store, error) {
		client := do.MustInvoke[*api.Client](i)
		store := session.New(client, do.MustInvoke[*tokenstore.FileStore](i), do.MustInvoke[notify.Notifier](i))
		client.SetUnauthorizedHandler(store.Expire)
		return store, nil
	})

	do.Provide(i, func(i do.Injector) (*realtime.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return realtime.New(RealtimeOptions(cfg), do.MustInvoke[*tokenstore.FileStore](i)), nil
	})

	return i
}

// RealtimeOptions maps the configuration onto the realtime client options.
func RealtimeOptions(cfg *config.Config) realtime.Options {
	return realtime.Options{
		URL:         cfg.WSURL,
		MaxRetries:  cfg.Realtime.MaxRetries,
		MinDelay:    cfg.Realtime.MinDelay,
		MaxDelay:    cfg.Realtime.MaxDelay,
		DialTimeout: cfg.Realtime.DialTimeout,
	}
}

// Build resolves every service from the injector.
func Build(i do.Injector) (*App, error) {
	a := &App{injector: i}
	var err error
	if a.Config, err = do.Invoke[*config.Config](i); err != nil {
		return nil, fmt.Errorf("resolve config: %w", err)
	}
	if a.Notifier, err = do.Invoke[notify.Notifier](i); err != nil {
		return nil, fmt.Errorf("resolve notifier: %w", err)
	}
	if a.Tokens, err = do.Invoke[*tokenstore.FileStore](i); err != nil {
		return nil, fmt.Errorf("resolve token store: %w", err)
	}
	if a.API, err = do.Invoke[*api.Client](i); err != nil {
		return nil, fmt.Errorf("resolve api client: %w", err)
	}
	if a.Session, err = do.Invoke[*session.Store](i); err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if a.Realtime, err = do.Invoke[*realtime.Client](i); err != nil {
		return nil, fmt.Errorf("resolve realtime client: %w", err)
	}
	return a, nil
}

// Close shuts down every service that holds resources.
func (a *App) Close() {
	a.injector.Shutdown()
	slog.Debug("Services shut down")
}
