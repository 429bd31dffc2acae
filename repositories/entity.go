//go:generate go run go.uber.org/mock/mockgen -source=entity.go -destination=../mocks/mock_entity_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
)

type IEntityRepository interface {
	Create(name string, kind domain.Kind, creator string) (domain.Entity, error)
	Find(name string) (domain.Entity, error)
	AppendMember(name, username string) (bool, error)
	RemoveMember(name, username string) error
	EntitiesContaining(username string) ([]string, error)
}

type EntityRepository struct {
	db *badger.DB
}

func NewEntityRepository(db *badger.DB) IEntityRepository {
	return &EntityRepository{db: db}
}

// Create persists a new entity whose member set contains the creator as
// admin. Name uniqueness is checked against both entities and users inside
// the same transaction, so two concurrent creations of the same name
// cannot both succeed.
func (e EntityRepository) Create(name string, kind domain.Kind, creator string) (domain.Entity, error) {
	entity := domain.Entity{
		Name:      name,
		Kind:      kind,
		Creator:   creator,
		Members:   map[string]domain.Role{creator: domain.RoleAdmin},
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return domain.Entity{}, err
	}

	err = e.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(entityKey(name)); err == nil {
			return errors.ErrNameTaken
		}
		if _, err := txn.Get(userKey(name)); err == nil {
			return errors.ErrNameTaken
		}
		if err := txn.Set(entityKey(name), data); err != nil {
			return err
		}
		return txn.Set(memberKey(creator, name), []byte(domain.RoleAdmin))
	})
	if err != nil {
		return domain.Entity{}, err
	}
	return entity, nil
}

func (e EntityRepository) Find(name string) (domain.Entity, error) {
	var entity domain.Entity
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entityKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entity)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Entity{}, errors.ErrEntityNotFound
	}
	if err != nil {
		return domain.Entity{}, err
	}
	return entity, nil
}

// AppendMember adds username to the member set. The read-modify-write runs
// in one transaction with conflict retry: two concurrent AppendMember calls
// on the same entity serialize instead of dropping an addition. The call is
// idempotent and reports whether the set actually grew.
func (e EntityRepository) AppendMember(name, username string) (bool, error) {
	var added bool
	err := withConflictRetry(func() error {
		return e.db.Update(func(txn *badger.Txn) error {
			entity, err := getEntity(txn, name)
			if err != nil {
				return err
			}
			if entity.IsMember(username) {
				added = false
				return nil
			}
			entity.Members[username] = domain.RoleMember
			data, err := json.Marshal(entity)
			if err != nil {
				return err
			}
			if err := txn.Set(entityKey(name), data); err != nil {
				return err
			}
			if err := txn.Set(memberKey(username, name), []byte(domain.RoleMember)); err != nil {
				return err
			}
			added = true
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return false, errors.ErrEntityNotFound
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return added, nil
}

// RemoveMember drops username from the member set and its reverse index.
// Removing a non-member is a no-op.
func (e EntityRepository) RemoveMember(name, username string) error {
	err := withConflictRetry(func() error {
		return e.db.Update(func(txn *badger.Txn) error {
			entity, err := getEntity(txn, name)
			if err != nil {
				return err
			}
			if !entity.IsMember(username) {
				return nil
			}
			delete(entity.Members, username)
			data, err := json.Marshal(entity)
			if err != nil {
				return err
			}
			if err := txn.Set(entityKey(name), data); err != nil {
				return err
			}
			return txn.Delete(memberKey(username, name))
		})
	})
	if err == badger.ErrKeyNotFound {
		return errors.ErrEntityNotFound
	}
	return err
}

// EntitiesContaining lists the entity names username belongs to, via a
// prefix scan over the reverse membership index ("member:{user}:{entity}").
// This is the lookup the membership resolver runs on every connect.
func (e EntityRepository) EntitiesContaining(username string) ([]string, error) {
	var names []string
	prefix := []byte("member:" + username + ":")
	err := e.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func getEntity(txn *badger.Txn, name string) (domain.Entity, error) {
	var entity domain.Entity
	item, err := txn.Get(entityKey(name))
	if err != nil {
		return domain.Entity{}, err
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	}); err != nil {
		return domain.Entity{}, err
	}
	return entity, nil
}

func entityKey(name string) []byte {
	return []byte("entity:" + name)
}

func memberKey(username, entity string) []byte {
	return []byte("member:" + username + ":" + entity)
}
