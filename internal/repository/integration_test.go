//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/taskhub/backend/internal/accounts"
	"github.com/taskhub/backend/internal/apperror"
	"github.com/taskhub/backend/internal/database"
	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/repository"
)

// setupPostgres starts a disposable Postgres, applies all migrations and
// returns a pool connected to it.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("taskhub_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("warning: failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool, nil))
	return pool
}

func createAccount(t *testing.T, repo *repository.AccountRepo, email string) *models.Account {
	t.Helper()
	acc := &models.Account{Name: "Test", Email: email, PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), acc))
	return acc
}

func TestIntegration_Repositories(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	accountRepo := repository.NewAccountRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)

	t.Run("duplicate email", func(t *testing.T) {
		createAccount(t, accountRepo, "dup@example.com")
		err := accountRepo.Create(ctx, &models.Account{Name: "Other", Email: "dup@example.com", PasswordHash: "h"})
		assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
	})

	t.Run("token set", func(t *testing.T) {
		acc := createAccount(t, accountRepo, "tokens@example.com")

		require.NoError(t, accountRepo.AppendToken(ctx, acc.ID, "a"))
		require.NoError(t, accountRepo.AppendToken(ctx, acc.ID, "b"))

		_, err := accountRepo.GetByIDWithToken(ctx, acc.ID, "a")
		require.NoError(t, err)

		require.NoError(t, accountRepo.RemoveToken(ctx, acc.ID, "a"))
		_, err = accountRepo.GetByIDWithToken(ctx, acc.ID, "a")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = accountRepo.GetByIDWithToken(ctx, acc.ID, "b")
		require.NoError(t, err)

		require.NoError(t, accountRepo.RemoveToken(ctx, acc.ID, "never-issued"))

		require.NoError(t, accountRepo.ClearTokens(ctx, acc.ID))
		_, err = accountRepo.GetByIDWithToken(ctx, acc.ID, "b")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		assert.ErrorIs(t, accountRepo.AppendToken(ctx, uuid.New(), "x"), repository.ErrNotFound)
	})

	t.Run("concurrent token appends are not lost", func(t *testing.T) {
		acc := createAccount(t, accountRepo, "race@example.com")

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, accountRepo.AppendToken(ctx, acc.ID, fmt.Sprintf("tok-%d", i)))
			}(i)
		}
		wg.Wait()

		got, err := accountRepo.GetByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.Len(t, got.Tokens, n)
	})

	t.Run("profile update keeps tokens", func(t *testing.T) {
		acc := createAccount(t, accountRepo, "profile@example.com")
		require.NoError(t, accountRepo.AppendToken(ctx, acc.ID, "keep"))

		acc.Name = "Renamed"
		require.NoError(t, accountRepo.UpdateProfile(ctx, acc))

		got, err := accountRepo.GetByIDWithToken(ctx, acc.ID, "keep")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
	})

	t.Run("avatar", func(t *testing.T) {
		acc := createAccount(t, accountRepo, "avatar@example.com")

		_, err := accountRepo.GetAvatar(ctx, acc.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		require.NoError(t, accountRepo.SetAvatar(ctx, acc.ID, []byte{1, 2, 3}))
		data, err := accountRepo.GetAvatar(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)

		require.NoError(t, accountRepo.SetAvatar(ctx, acc.ID, nil))
		_, err = accountRepo.GetAvatar(ctx, acc.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("task ownership", func(t *testing.T) {
		owner := createAccount(t, accountRepo, "owner@example.com")
		other := createAccount(t, accountRepo, "other@example.com")

		task := &models.Task{Description: "mine", OwnerID: owner.ID}
		require.NoError(t, taskRepo.Create(ctx, task))

		_, err := taskRepo.GetOwned(ctx, other.ID, task.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		done := true
		_, err = taskRepo.UpdateOwned(ctx, other.ID, task.ID, models.TaskPatch{Completed: &done})
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = taskRepo.DeleteOwned(ctx, other.ID, task.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		updated, err := taskRepo.UpdateOwned(ctx, owner.ID, task.ID, models.TaskPatch{Completed: &done})
		require.NoError(t, err)
		assert.True(t, updated.Completed)
		assert.Equal(t, "mine", updated.Description)

		deleted, err := taskRepo.DeleteOwned(ctx, owner.ID, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, deleted.ID)
	})

	t.Run("list filter sort and paging", func(t *testing.T) {
		owner := createAccount(t, accountRepo, "lister@example.com")
		for i, completed := range []bool{true, false, true} {
			require.NoError(t, taskRepo.Create(ctx, &models.Task{
				Description: fmt.Sprintf("task %d", i),
				Completed:   completed,
				OwnerID:     owner.ID,
			}))
		}

		done := true
		list, err := taskRepo.ListOwned(ctx, owner.ID, models.TaskListOptions{Completed: &done})
		require.NoError(t, err)
		assert.Len(t, list, 2)

		list, err = taskRepo.ListOwned(ctx, owner.ID, models.TaskListOptions{
			SortField: models.TaskSortDescription,
			SortDesc:  true,
			Limit:     2,
			Skip:      1,
		})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "task 1", list[0].Description)
		assert.Equal(t, "task 0", list[1].Description)
	})

	t.Run("foreign key rejects orphaning delete", func(t *testing.T) {
		owner := createAccount(t, accountRepo, "fk@example.com")
		require.NoError(t, taskRepo.Create(ctx, &models.Task{Description: "pinned", OwnerID: owner.ID}))

		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		assert.Error(t, accountRepo.DeleteTx(ctx, tx, owner.ID))
	})
}

// failingPurger fails the task step of the cascade.
type failingPurger struct{}

func (failingPurger) DeleteByOwner(context.Context, pgx.Tx, uuid.UUID) (int64, error) {
	return 0, errors.New("purge failed")
}

func TestIntegration_AccountDeleteCascade(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	accountRepo := repository.NewAccountRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	creds := accounts.NewCredentials(accounts.BcryptHasher{Cost: 4})

	t.Run("removes account and its tasks together", func(t *testing.T) {
		svc := accounts.NewService(accountRepo, taskRepo, pool, creds, nil, nil)
		acc, err := svc.Create(ctx, accounts.CreateInput{Name: "Ann", Email: "ann@example.com", Password: "hunter22"})
		require.NoError(t, err)
		bystander := createAccount(t, accountRepo, "bystander@example.com")

		for i := 0; i < 3; i++ {
			require.NoError(t, taskRepo.Create(ctx, &models.Task{Description: "t", OwnerID: acc.ID}))
		}
		require.NoError(t, taskRepo.Create(ctx, &models.Task{Description: "kept", OwnerID: bystander.ID}))

		require.NoError(t, svc.Delete(ctx, acc))

		_, err = accountRepo.GetByID(ctx, acc.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		left, err := taskRepo.ListOwned(ctx, acc.ID, models.TaskListOptions{})
		require.NoError(t, err)
		assert.Empty(t, left)
		kept, err := taskRepo.ListOwned(ctx, bystander.ID, models.TaskListOptions{})
		require.NoError(t, err)
		assert.Len(t, kept, 1)
	})

	t.Run("task failure keeps the account", func(t *testing.T) {
		svc := accounts.NewService(accountRepo, failingPurger{}, pool, creds, nil, nil)
		acc := createAccount(t, accountRepo, "stays@example.com")
		require.NoError(t, taskRepo.Create(ctx, &models.Task{Description: "t", OwnerID: acc.ID}))

		err := svc.Delete(ctx, acc)
		assert.Equal(t, apperror.KindCascade, apperror.KindOf(err))

		_, err = accountRepo.GetByID(ctx, acc.ID)
		require.NoError(t, err)
		left, err := taskRepo.ListOwned(ctx, acc.ID, models.TaskListOptions{})
		require.NoError(t, err)
		assert.Len(t, left, 1)
	})
}
