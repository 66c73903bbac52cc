// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package clipbrain

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/Mohit888790/clipbrain/ai"
	"github.com/Mohit888790/clipbrain/ai/openai"
	"github.com/Mohit888790/clipbrain/ingestion"
	"github.com/Mohit888790/clipbrain/intake"
	"github.com/Mohit888790/clipbrain/reembed"
	"github.com/Mohit888790/clipbrain/search"
	"github.com/Mohit888790/clipbrain/storage"
	"github.com/Mohit888790/clipbrain/storage/badger"
	"github.com/Mohit888790/clipbrain/storage/postgres"
)

// Database owns the record store and AI provider and builds the services
// that run on top of them.
type Database struct {
	repos    *storage.Repositories
	closer   func() error
	provider ai.AIProvider
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	postgresDSN string
	logger      *slog.Logger
}

// WithAIConfig sets the settings for the OpenAI-compatible provider.
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = cfg
	}
}

// WithAIProvider uses provider instead of building one from the AI config.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithPostgres stores records in Postgres instead of the embedded store.
// The file path given to NewDatabase is then ignored.
func WithPostgres(dsn string) DatabaseOption {
	return func(o *databaseOptions) {
		o.postgresDSN = dsn
	}
}

// WithLogger sets the logger handed to every service built here.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the record store at filePath (a BadgerDB directory)
// and the AI provider.
func NewDatabase(ctx context.Context, filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	repos, closer, err := openStore(ctx, filePath, options.postgresDSN)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			closer()
			return nil, err
		}
	}

	return &Database{
		repos:    repos,
		closer:   closer,
		provider: provider,
		logger:   options.logger,
	}, nil
}

func openStore(ctx context.Context, filePath, dsn string) (*storage.Repositories, func() error, error) {
	if dsn != "" {
		db, err := postgres.NewDB(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewRepositories(db), func() error { db.Close(); return nil }, nil
	}
	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, nil, err
	}
	return badger.NewRepositories(backend), backend.Close, nil
}

// Close releases the provider, repositories and store. It returns the
// first error but attempts every step.
func (db *Database) Close() error {
	var errs []error
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := db.repos.Close(); err != nil {
		db.logger.Error("error closing repositories", "err", err)
		errs = append(errs, err)
	}
	if err := db.closer(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Repositories returns the record store.
func (db *Database) Repositories() *storage.Repositories {
	return db.repos
}

// Provider returns the AI provider.
func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// NewIngestionPipeline builds a pipeline over this database.
func (db *Database) NewIngestionPipeline(
	downloader ingestion.Downloader,
	store ingestion.ObjectStore,
	transcriber ingestion.Transcriber,
	opts ...ingestion.Option,
) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)
	return ingestion.NewPipeline(db.repos, downloader, store, transcriber, db.provider, opts...)
}

// NewSearcher builds a hybrid searcher over this database.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db.repos, db.provider, opts...)
}

// NewIntake builds the submission service that publishes to publisher.
func (db *Database) NewIntake(publisher intake.Publisher, opts ...intake.Option) (*intake.Service, error) {
	opts = append([]intake.Option{intake.WithLogger(db.logger)}, opts...)
	return intake.NewService(db.repos.Jobs, publisher, opts...)
}

// NewSweeper builds the stale-job sweeper.
func (db *Database) NewSweeper(opts ...ingestion.SweeperOption) (*ingestion.Sweeper, error) {
	opts = append([]ingestion.SweeperOption{ingestion.WithSweeperLogger(db.logger)}, opts...)
	return ingestion.NewSweeper(db.repos.Jobs, opts...)
}

// NewBackfiller builds the embedding backfiller. A nil config uses
// reembed.DefaultConfig.
func (db *Database) NewBackfiller(config *reembed.Config, progress io.Writer) (*reembed.Backfiller, error) {
	return reembed.NewBackfiller(db.repos.Chunks, db.provider.Embedder(), config, progress, db.logger)
}
