//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
)

type IMessageRepository interface {
	Insert(message domain.Message) (domain.Message, error)
	Find(id uuid.UUID) (domain.Message, error)
	UpdateContent(id uuid.UUID, content string) (domain.Message, error)
	Delete(id uuid.UUID) (domain.Message, error)
	History(room string, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// Insert persists a new message and assigns its identifier and timestamp.
// Two keys are written atomically:
//  1. "msg:{uuid}" holds the record itself, for point lookups on edit/delete.
//  2. "idx:msg:{room}:{timestamp_padded}:{uuid}" orders the room history.
//     The 19-digit zero padding makes lexicographical order chronological,
//     and the UUID disconnects collisions when two messages share a nanosecond.
func (m MessageRepository) Insert(message domain.Message) (domain.Message, error) {
	message.ID = uuid.New()
	message.CreatedAt = time.Now().UTC()

	bytes, err := json.Marshal(message)
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(message.ID), bytes); err != nil {
			return err
		}
		return txn.Set(indexKey(message.Target, message.CreatedAt, message.ID), message.ID[:])
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return message, nil
}

// Find retrieves a message by identifier.
func (m MessageRepository) Find(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// UpdateContent mutates the stored content and flips the edited flag.
// The read-modify-write runs inside a single transaction and retries on
// commit conflict so concurrent edits of the same record serialize.
func (m MessageRepository) UpdateContent(id uuid.UUID, content string) (domain.Message, error) {
	var updated domain.Message
	err := withConflictRetry(func() error {
		return m.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(recordKey(id))
			if err != nil {
				return err
			}
			var message domain.Message
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			}); err != nil {
				return err
			}
			message.Content = content
			message.Edited = true
			bytes, err := json.Marshal(message)
			if err != nil {
				return err
			}
			updated = message
			return txn.Set(recordKey(id), bytes)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return updated, nil
}

// Delete hard-removes a message and its history index entry. No tombstone
// is kept. The removed record is returned so the caller still knows its
// target and sender rooms for fan-out.
func (m MessageRepository) Delete(id uuid.UUID) (domain.Message, error) {
	var removed domain.Message
	err := withConflictRetry(func() error {
		return m.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(recordKey(id))
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &removed)
			}); err != nil {
				return err
			}
			if err := txn.Delete(recordKey(id)); err != nil {
				return err
			}
			return txn.Delete(indexKey(removed.Target, removed.CreatedAt, removed.ID))
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return removed, nil
}

// History retrieves messages for a room, newest first, using a reverse
// prefix scan over the index. Thanks to the padded timestamp in the key the
// scan is naturally time-ordered. It stops once limitMessages is reached
// and returns an opaque cursor (the last visited key suffix) for paging.
// A nil cursor means the scan exhausted the room; there is no next page.
func (m MessageRepository) History(room string, cursor *string) ([]domain.Message, *string, error) {
	var ids []uuid.UUID
	var lastKey string
	var hasMore bool
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("idx:msg:%s:", room)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(ids) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				// The current entry is unread, so another page exists.
				hasMore = true
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			if err := item.Value(func(value []byte) error {
				id, err := uuid.FromBytes(value)
				if err != nil {
					return err
				}
				ids = append(ids, id)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []domain.Message
	for _, id := range ids {
		message, err := m.Find(id)
		if err == errors.ErrMessageNotFound {
			// Deleted between scan and lookup; skip.
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	if !hasMore {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func recordKey(id uuid.UUID) []byte {
	return []byte("msg:" + id.String())
}

func indexKey(room string, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("idx:msg:%s:%019d:%s", room, at.UnixNano(), id))
}

// withConflictRetry re-runs a transactional closure while Badger reports a
// serialization conflict. Per-aggregate mutations stay lost-update free
// without any external lock.
func withConflictRetry(fn func() error) error {
	for {
		err := fn()
		if err != badger.ErrConflict {
			return err
		}
	}
}
