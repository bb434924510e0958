package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/accounts"
	"github.com/taskhub/backend/internal/auth"
	"github.com/taskhub/backend/internal/config"
	"github.com/taskhub/backend/internal/handlers"
	"github.com/taskhub/backend/internal/metrics"
	"github.com/taskhub/backend/internal/repository"
	"github.com/taskhub/backend/internal/router"
	"github.com/taskhub/backend/internal/tasks"
	"github.com/taskhub/backend/internal/validation"
)

// newAPI wires repositories, services and handlers into the route table.
func newAPI(
	pool *pgxpool.Pool,
	cfg *config.Config,
	notifier accounts.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) (http.Handler, error) {
	validator, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("compile schemas: %w", err)
	}
	signer, err := auth.NewTokenSigner([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	accountRepo := repository.NewAccountRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)

	creds := accounts.NewCredentials(accounts.BcryptHasher{Cost: cfg.BcryptCost})
	accountSvc := accounts.NewService(accountRepo, taskRepo, pool, creds, notifier, logger)
	taskSvc := tasks.NewService(taskRepo)
	authSvc := auth.NewService(accountRepo, accountSvc, creds, signer, logger)

	return router.New(router.Deps{
		Auth: auth.NewHandler(authSvc, validator, m, logger),
		Accounts: &handlers.AccountHandler{
			Accounts:  accountSvc,
			Validator: validator,
			Deletions: m,
			Logger:    logger,
		},
		Tasks: &handlers.TaskHandler{
			Tasks:     taskSvc,
			Validator: validator,
			Logger:    logger,
		},
		Authorizer: authSvc,
		DB:         pool,
		Metrics:    m.Handler(),
		Logger:     logger,
	}), nil
}
