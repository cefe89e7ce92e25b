package service

import (
	"context"

	"postsapi/app/config"
	"postsapi/app/repositories"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OpenRepository connects the post store selected by cfg. The caller owns
// the returned repository and must Close it.
func OpenRepository(ctx context.Context, cfg config.Config, log *zap.Logger) (repositories.PostRepository, error) {
	switch cfg.Storage {
	case config.StorageBadger:
		db, err := repositories.OpenBadger(cfg.BadgerPath, cfg.BadgerInMemory)
		if err != nil {
			return nil, err
		}
		log.Info("badger store opened",
			zap.String("path", cfg.BadgerPath),
			zap.Bool("in_memory", cfg.BadgerInMemory),
		)
		return repositories.NewBadgerPostRepository(db), nil

	case config.StorageMongo:
		ctx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout.Duration)
		defer cancel()

		repo, err := repositories.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		log.Info("mongo store connected",
			zap.String("uri", cfg.Redacted().MongoURI),
			zap.String("database", cfg.MongoDatabase),
		)
		return repo, nil

	default:
		return nil, errors.Errorf("unknown storage %q", cfg.Storage)
	}
}
