package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var admins, employees []string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Pre-provision staff accounts by email",
		Long: `Create or update staff accounts before their owners first sign in.

Accounts are stored with a placeholder subject id. The first successful
POST /users/sync by the matching email links the account to the real identity
and keeps the provisioned role.

Examples:
  seed --admin ops@example.com
  seed --employee agent1@example.com --employee agent2@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(admins) == 0 && len(employees) == 0 {
				return errors.New("nothing to provision: pass --admin or --employee")
			}
			return runSeed(cmd.Context(), cmd, map[domain.Role][]string{
				domain.RoleAdmin:    admins,
				domain.RoleEmployee: employees,
			})
		},
	}
	cmd.Flags().StringSliceVar(&admins, "admin", nil, "email to provision with the admin role (repeatable)")
	cmd.Flags().StringSliceVar(&employees, "employee", nil, "email to provision with the employee role (repeatable)")
	return cmd
}

func runSeed(ctx context.Context, cmd *cobra.Command, accounts map[domain.Role][]string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required to provision accounts")
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	registry := service.NewRoleRegistry(repository.NewUserRepository(pg.PoolHandle()), logger)
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleEmployee} {
		for _, email := range accounts[role] {
			user, err := registry.Provision(ctx, email, role)
			if err != nil {
				logger.Error("provision failed", zap.String("email", email), zap.Error(err))
				return fmt.Errorf("provision %s: %w", email, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded role for: %s -> %s\n", user.Email, user.Role)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Accounts link to their identity on first sign-in.")
	return nil
}
