//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
)

type IUserRepository interface {
	CreateUser(name, passwordHash string) (domain.User, error)
	FindUser(name string) (domain.User, error)
	SetOnline(name string, online bool) error
	Block(owner, blocked string) error
	Unblock(owner, blocked string) error
	IsBlocked(owner, sender string) (bool, error)
	BlockedBy(owner string) ([]string, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// CreateUser persists a new user record. User and entity names share one
// namespace: a name already owned by either kind is refused, which keeps
// receiver resolution unambiguous for the router.
func (u UserRepository) CreateUser(name, passwordHash string) (domain.User, error) {
	user := domain.User{
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return domain.User{}, err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(name)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if _, err := txn.Get(entityKey(name)); err == nil {
			return errors.ErrNameTaken
		}
		return txn.Set(userKey(name), data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u UserRepository) FindUser(name string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// SetOnline flips the online flag. Maintained on connect/disconnect; the
// flag is advisory and never consulted for routing decisions.
func (u UserRepository) SetOnline(name string, online bool) error {
	err := withConflictRetry(func() error {
		return u.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(userKey(name))
			if err != nil {
				return err
			}
			var user domain.User
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &user)
			}); err != nil {
				return err
			}
			user.Online = online
			data, err := json.Marshal(user)
			if err != nil {
				return err
			}
			return txn.Set(userKey(name), data)
		})
	})
	if err == badger.ErrKeyNotFound {
		return errors.ErrUserNotFound
	}
	return err
}

// Block records a directional block pair owned by the blocking party.
// Pairs are stored as dedicated keys ("block:{owner}:{blocked}") so the
// membership test is a point lookup and no delimited text is ever parsed.
func (u UserRepository) Block(owner, blocked string) error {
	return u.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blockKey(owner, blocked), nil)
	})
}

func (u UserRepository) Unblock(owner, blocked string) error {
	return u.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(blockKey(owner, blocked))
	})
}

// IsBlocked reports whether owner has blocked sender.
func (u UserRepository) IsBlocked(owner, sender string) (bool, error) {
	err := u.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(blockKey(owner, sender))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BlockedBy lists every identity owner has blocked, via a prefix scan.
func (u UserRepository) BlockedBy(owner string) ([]string, error) {
	var blocked []string
	prefix := []byte("block:" + owner + ":")
	err := u.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			blocked = append(blocked, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blocked, nil
}

func userKey(name string) []byte {
	return []byte("user:" + name)
}

func blockKey(owner, blocked string) []byte {
	return []byte("block:" + owner + ":" + blocked)
}
