package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
)

func Test_CreateUser_And_Find(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	user, err := repository.CreateUser("alice", "hash")
	req.NoError(err)
	req.Equal("alice", user.Name)

	fetched, err := repository.FindUser("alice")
	req.NoError(err)
	req.Equal(user, fetched)
}

func Test_CreateUser_Duplicate(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.CreateUser("alice", "hash")
	req.NoError(err)

	_, err = repository.CreateUser("alice", "otherhash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_CreateUser_Name_Owned_By_Entity(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	users := NewUserRepository(db)
	entities := NewEntityRepository(db)

	// Given an entity already owns the name
	_, err := entities.Create("devs", domain.KindGroup, "alice")
	req.NoError(err)

	// Then a user cannot claim it
	_, err = users.CreateUser("devs", "hash")
	req.ErrorIs(err, errors.ErrNameTaken)
}

func Test_SetOnline_Roundtrip(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.CreateUser("alice", "hash")
	req.NoError(err)

	req.NoError(repository.SetOnline("alice", true))
	user, err := repository.FindUser("alice")
	req.NoError(err)
	req.True(user.Online)

	req.NoError(repository.SetOnline("alice", false))
	user, err = repository.FindUser("alice")
	req.NoError(err)
	req.False(user.Online)
}

func Test_SetOnline_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	err := repository.SetOnline("ghost", true)

	req.ErrorIs(err, errors.ErrUserNotFound)
}

func Test_Block_Is_Directional(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	// Given bob blocks alice
	req.NoError(repository.Block("bob", "alice"))

	// Then only that direction is blocked
	blocked, err := repository.IsBlocked("bob", "alice")
	req.NoError(err)
	req.True(blocked)

	blocked, err = repository.IsBlocked("alice", "bob")
	req.NoError(err)
	req.False(blocked)
}

func Test_Unblock_Restores_Delivery(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	req.NoError(repository.Block("bob", "alice"))
	req.NoError(repository.Unblock("bob", "alice"))

	blocked, err := repository.IsBlocked("bob", "alice")
	req.NoError(err)
	req.False(blocked)
}

func Test_BlockedBy_Lists_All(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	req.NoError(repository.Block("bob", "alice"))
	req.NoError(repository.Block("bob", "mallory"))

	blocked, err := repository.BlockedBy("bob")
	req.NoError(err)
	req.ElementsMatch([]string{"alice", "mallory"}, blocked)
}
