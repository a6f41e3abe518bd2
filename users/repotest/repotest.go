// Package repotest holds the behaviour every users.UserRepo implementation must share.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/stretchr/testify/require"
)

// RunUserRepoTests exercises repo implementations returned by newRepo. Each subtest gets a fresh repo.
func RunUserRepoTests(t *testing.T, newRepo func(t *testing.T) users.UserRepo) {
	ctx := context.Background()

	t.Run("save assigns id and round trips", func(t *testing.T) {
		repo := newRepo(t)
		expiry := time.Unix(1700000000, 0)

		saved, err := repo.Save(ctx, &users.User{
			Email:              "a@x.com",
			PasswordHash:       "hash",
			FullName:           "Alice",
			Roles:              []string{"ROLE_USER", "ROLE_ADMIN"},
			Provider:           users.ProviderLocal,
			IsActive:           true,
			VerificationCode:   "code-1",
			VerificationExpiry: expiry,
		})
		require.NoError(t, err)
		require.NotZero(t, saved.ID)

		found, err := repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, saved.ID, found.ID)
		require.Equal(t, "Alice", found.FullName)
		require.Equal(t, []string{"ROLE_USER", "ROLE_ADMIN"}, found.Roles)
		require.Equal(t, users.ProviderLocal, found.Provider)
		require.Nil(t, found.ProviderID)
		require.True(t, found.IsActive)
		require.False(t, found.EmailVerified)
		require.True(t, expiry.Equal(found.VerificationExpiry))

		byID, err := repo.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		require.Equal(t, "a@x.com", byID.Email)

		byCode, err := repo.FindByVerificationCode(ctx, "code-1")
		require.NoError(t, err)
		require.Equal(t, saved.ID, byCode.ID)
	})

	t.Run("update in place", func(t *testing.T) {
		repo := newRepo(t)
		saved, err := repo.Save(ctx, &users.User{Email: "a@x.com", Provider: users.ProviderLocal, IsActive: true})
		require.NoError(t, err)

		saved.Provider = users.ProviderGoogle
		saved.ProviderID = utils.Ptr("123")
		saved.PictureURL = "https://pics/a.png"
		_, err = repo.Save(ctx, saved)
		require.NoError(t, err)

		found, err := repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, saved.ID, found.ID)
		require.Equal(t, users.ProviderGoogle, found.Provider)
		require.Equal(t, "123", utils.Value(found.ProviderID))
		require.Equal(t, "https://pics/a.png", found.PictureURL)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, &users.User{Email: "a@x.com"})
		require.NoError(t, err)

		_, err = repo.Save(ctx, &users.User{Email: "a@x.com"})
		require.ErrorIs(t, err, autherrors.ErrEmailInUse)
	})

	t.Run("update of unknown id leaves the email index intact", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, &users.User{ID: 99, Email: "ghost@x.com"})
		require.ErrorIs(t, err, autherrors.ErrUserNotFound)

		exists, err := repo.ExistsByEmail(ctx, "ghost@x.com")
		require.NoError(t, err)
		require.False(t, exists)

		saved, err := repo.Save(ctx, &users.User{Email: "ghost@x.com"})
		require.NoError(t, err)
		found, err := repo.FindByEmail(ctx, "ghost@x.com")
		require.NoError(t, err)
		require.Equal(t, saved.ID, found.ID)
	})

	t.Run("update to an email held by another account rejected", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, &users.User{Email: "a@x.com"})
		require.NoError(t, err)
		b, err := repo.Save(ctx, &users.User{Email: "b@x.com"})
		require.NoError(t, err)

		b.Email = "a@x.com"
		_, err = repo.Save(ctx, b)
		require.ErrorIs(t, err, autherrors.ErrEmailInUse)
	})

	t.Run("reset code lookup", func(t *testing.T) {
		repo := newRepo(t)
		expiry := time.Unix(1700000600, 0)
		saved, err := repo.Save(ctx, &users.User{Email: "a@x.com", ResetCode: "reset-1", ResetExpiry: expiry})
		require.NoError(t, err)

		found, err := repo.FindByResetCode(ctx, "reset-1")
		require.NoError(t, err)
		require.Equal(t, saved.ID, found.ID)
		require.True(t, expiry.Equal(found.ResetExpiry))

		found.ResetCode = ""
		_, err = repo.Save(ctx, found)
		require.NoError(t, err)
		_, err = repo.FindByResetCode(ctx, "reset-1")
		require.ErrorIs(t, err, autherrors.ErrUserNotFound)
		_, err = repo.FindByResetCode(ctx, "")
		require.ErrorIs(t, err, autherrors.ErrUserNotFound)
	})

	t.Run("list is ordered by id", func(t *testing.T) {
		repo := newRepo(t)
		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Empty(t, all)

		for _, email := range []string{"c@x.com", "a@x.com", "b@x.com"} {
			_, err := repo.Save(ctx, &users.User{Email: email})
			require.NoError(t, err)
		}
		all, err = repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, "c@x.com", all[0].Email)
		require.Equal(t, "a@x.com", all[1].Email)
		require.Equal(t, "b@x.com", all[2].Email)
		require.Less(t, all[0].ID, all[1].ID)
	})

	t.Run("missing email rejected", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, &users.User{})
		require.ErrorIs(t, err, autherrors.ErrInvalidRequest)
	})

	t.Run("not found", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByEmail(ctx, "nobody@x.com")
		require.ErrorIs(t, err, autherrors.ErrUserNotFound)

		_, err = repo.FindByID(ctx, 42)
		require.ErrorIs(t, err, autherrors.ErrUserNotFound)

		_, err = repo.FindByVerificationCode(ctx, "")
		require.ErrorIs(t, err, autherrors.ErrUserNotFound)

		exists, err := repo.ExistsByEmail(ctx, "nobody@x.com")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("email lookup is case sensitive", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, &users.User{Email: "a@x.com"})
		require.NoError(t, err)

		exists, err := repo.ExistsByEmail(ctx, "A@X.com")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		repo := newRepo(t)
		saved, err := repo.Save(ctx, &users.User{Email: "a@x.com", Roles: []string{"ROLE_USER"}})
		require.NoError(t, err)

		saved.Roles[0] = "ROLE_ADMIN"
		found, err := repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, []string{"ROLE_USER"}, found.Roles)
	})

	t.Run("concurrent saves", func(t *testing.T) {
		repo := newRepo(t)
		emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"}

		errs := make(chan error, len(emails))
		var wg sync.WaitGroup
		for _, email := range emails {
			wg.Add(1)
			go func(email string) {
				defer wg.Done()
				_, err := repo.Save(ctx, &users.User{Email: email})
				errs <- err
			}(email)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		for _, email := range emails {
			exists, err := repo.ExistsByEmail(ctx, email)
			require.NoError(t, err)
			require.True(t, exists, email)
		}
	})
}
