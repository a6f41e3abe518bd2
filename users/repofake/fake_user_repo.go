package fakeuserrepo

import (
	"cmp"
	"context"
	"slices"
	"sync"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

// FakeUserRepo is a thread-safe in-memory users.UserRepo. Records are copied on the way in and
// out so callers never mutate stored state without calling Save.
type FakeUserRepo struct {
	users    map[int64]*users.User
	emailIds map[string]int64 // email to user id
	nextID   int64
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[int64]*users.User),
		emailIds: make(map[string]int64),
	}
}

func (ur *FakeUserRepo) Save(_ context.Context, user *users.User) (*users.User, error) {
	if user == nil || user.Email == "" {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidRequest, "save user: email is required")
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()

	if id, ok := ur.emailIds[user.Email]; ok && id != user.ID {
		return nil, autherrors.Wrapf(autherrors.ErrEmailInUse, "save user %s", user.Email)
	}

	stored := user.Clone()
	if stored.ID == 0 {
		ur.nextID++
		stored.ID = ur.nextID
	} else {
		existing, ok := ur.users[stored.ID]
		if !ok {
			return nil, autherrors.Wrapf(autherrors.ErrUserNotFound, "update user %d", stored.ID)
		}
		if existing.Email != stored.Email {
			delete(ur.emailIds, existing.Email)
		}
	}
	ur.users[stored.ID] = stored
	ur.emailIds[stored.Email] = stored.ID
	return stored.Clone(), nil
}

func (ur *FakeUserRepo) FindByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[email]
	if !ok {
		return nil, autherrors.ErrUserNotFound
	}
	return ur.users[id].Clone(), nil
}

func (ur *FakeUserRepo) FindByID(_ context.Context, id int64) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, autherrors.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (ur *FakeUserRepo) FindByVerificationCode(_ context.Context, code string) (*users.User, error) {
	if code == "" {
		return nil, autherrors.ErrUserNotFound
	}

	ur.lock.RLock()
	defer ur.lock.RUnlock()

	for _, u := range ur.users {
		if u.VerificationCode == code {
			return u.Clone(), nil
		}
	}
	return nil, autherrors.ErrUserNotFound
}

func (ur *FakeUserRepo) FindByResetCode(_ context.Context, code string) (*users.User, error) {
	if code == "" {
		return nil, autherrors.ErrUserNotFound
	}

	ur.lock.RLock()
	defer ur.lock.RUnlock()

	for _, u := range ur.users {
		if u.ResetCode == code {
			return u.Clone(), nil
		}
	}
	return nil, autherrors.ErrUserNotFound
}

func (ur *FakeUserRepo) List(_ context.Context) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	all := make([]*users.User, 0, len(ur.users))
	for _, u := range ur.users {
		all = append(all, u.Clone())
	}
	slices.SortFunc(all, func(a, b *users.User) int { return cmp.Compare(a.ID, b.ID) })
	return all, nil
}

func (ur *FakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	_, ok := ur.emailIds[email]
	return ok, nil
}

// Count returns the number of stored accounts.
func (ur *FakeUserRepo) Count() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users)
}
