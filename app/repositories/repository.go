package repositories

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// OpenBadger opens the embedded store at path. An in-memory store ignores path.
func OpenBadger(path string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	if inMemory {
		opts = badger.DefaultOptions("").
			WithInMemory(true).
			WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger")
	}
	return db, nil
}
