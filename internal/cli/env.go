package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/datapreparer/internal/catalog"
	"github.com/roach88/datapreparer/internal/discovery"
	"github.com/roach88/datapreparer/internal/fixture"
	"github.com/roach88/datapreparer/internal/sample"
	"github.com/roach88/datapreparer/internal/store"
)

// environment is the store and catalog a command works against.
type environment struct {
	store      *store.Store
	registries []fixture.Registry
	catalog    *catalog.Catalog
}

// openEnvironment opens the configured store, discovers registries under the
// configured namespace and builds a catalog. A nil ids uses sample.UUIDs.
func openEnvironment(ctx context.Context, opts *RootOptions, ids sample.IDFunc) (*environment, error) {
	opts.ensure()
	cfg := opts.Config

	opts.Logger.Debug("opening store", slog.String("path", cfg.Store.Path))
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeStore, err)
	}

	tbl := discovery.NewTable(opts.Logger)
	sample.Register(tbl, st, ids)

	registries, err := tbl.Discover(ctx, cfg.Registry.Namespace)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, ErrCodeCatalog, err)
	}

	catOpts := []catalog.Option{catalog.WithLogger(opts.Logger)}
	if cfg.Catalog.StrictNames {
		catOpts = append(catOpts, catalog.WithStrictNames())
	}
	cat, err := catalog.New(registries, catOpts...)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, ErrCodeCatalog, fmt.Errorf("build catalog: %w", err))
	}

	return &environment{store: st, registries: registries, catalog: cat}, nil
}

func (e *environment) close(logger *slog.Logger) {
	if err := e.store.Close(); err != nil {
		logger.Error("error closing store", slog.String("error", err.Error()))
	}
}
