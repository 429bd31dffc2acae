package runtime

import (
	"github.com/jasurbek-jolanboyev/safechat.uz/repositories"
)

// BlockFilter decides whether a prospective personal delivery must be
// suppressed. It only ever applies to User targets: group and channel
// messages are not individually blockable, a deliberate simplification,
// not a moderation feature.
type BlockFilter struct {
	users repositories.IUserRepository
}

func NewBlockFilter(users repositories.IUserRepository) *BlockFilter {
	return &BlockFilter{users: users}
}

// IsBlocked reports whether target has blocked sender. The relationship is
// directional and owned by the target's record.
func (f *BlockFilter) IsBlocked(sender, target string) (bool, error) {
	return f.users.IsBlocked(target, sender)
}
