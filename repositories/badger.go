package repositories

import (
	"chat-relay/errors"
	"encoding/json"
	stdErrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// maxConflictRetries bounds how many times an update is replayed when a
// concurrent transaction touched the same keys.
const maxConflictRetries = 10

// update runs fn in a read-write transaction, retrying on conflicts so that
// a find-then-update behaves like one serialisable statement.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.Update(fn)
		if !stdErrors.Is(err, badger.ErrConflict) {
			return storageError(err)
		}
	}
	return storageError(err)
}

func view(db *badger.DB, fn func(txn *badger.Txn) error) error {
	return storageError(db.View(fn))
}

// storageError folds badger errors into the error taxonomy.
// Errors already part of it are kept as is.
func storageError(err error) error {
	switch {
	case err == nil:
		return nil
	case stdErrors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("%w: %w", errors.ErrNotFound, err)
	case stdErrors.Is(err, errors.ErrNotFound),
		stdErrors.Is(err, errors.ErrInvalidArgument),
		stdErrors.Is(err, errors.ErrStorageUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", errors.ErrStorageUnavailable, err)
	}
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	bytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, bytes)
}

// scanPrefix walks every key under prefix in ascending order.
func scanPrefix(txn *badger.Txn, prefix []byte, fn func(key, val []byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		err := item.Value(func(val []byte) error {
			return fn(key, val)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
