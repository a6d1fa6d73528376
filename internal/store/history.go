package store

import (
	"errors"
	"fmt"
	"strconv"

	badger "github.com/dgraph-io/badger/v4"
)

var historyKey = []byte("gmail/last_history_id")

// NewHistoryCursor creates the history cursor store.
func NewHistoryCursor(db *badger.DB) *HistoryCursor {
	return &HistoryCursor{db: db}
}

// HistoryCursor tracks the last processed Gmail history ID. Push
// notifications only carry a historyId; without the cursor a restart
// would lose track of which mailbox changes were already handled.
type HistoryCursor struct {
	db *badger.DB
}

// Last returns the stored cursor. ok is false on first run, before any
// cursor was set.
func (c *HistoryCursor) Last() (id uint64, ok bool, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(historyKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			parsed, err := strconv.ParseUint(string(val), 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt history cursor %q: %w", val, err)
			}
			id = parsed
			ok = true
			return nil
		})
	})
	if err != nil {
		return 0, false, fmt.Errorf("db.View failed: %w", err)
	}

	return id, ok, nil
}

// Set stores the cursor.
func (c *HistoryCursor) Set(id uint64) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(historyKey, []byte(strconv.FormatUint(id, 10)))
	})
	if err != nil {
		return fmt.Errorf("db.Update failed: %w", err)
	}

	return nil
}
