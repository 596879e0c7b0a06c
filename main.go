package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/config"
	"health-registry-server/internal/logger"
	"health-registry-server/internal/models"
	"health-registry-server/internal/server"
	"health-registry-server/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "health-registry",
		Short:        "Health program enrollment registry API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createSuperuserCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads .env when present, then the configuration and the logger.
func setup() (*config.Config, zerolog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, zerolog.Nop(), fmt.Errorf("error loading .env file: %w", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("error loading config: %w", err)
	}
	return cfg, logger.New(cfg.Logging), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lgr, err := setup()
			if err != nil {
				return err
			}

			srv, err := server.New(cfg, lgr)
			if err != nil {
				lgr.Error().Err(err).Msg("Failed to initialize server")
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			lgr.Info().Str("port", cfg.Port).Str("environment", cfg.Environment).Msg("Starting server...")
			if err := srv.Run(ctx); err != nil {
				lgr.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
				return err
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lgr, err := setup()
			if err != nil {
				return err
			}

			db, err := models.InitDB(cfg.Database, lgr)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			lgr.Info().Str("driver", cfg.Database.Driver).Msg("Database schema is up to date")
			return nil
		},
	}
}

func createSuperuserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an active staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			firstName, _ := cmd.Flags().GetString("first-name")
			lastName, _ := cmd.Flags().GetString("last-name")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			cfg, lgr, err := setup()
			if err != nil {
				return err
			}
			db, err := models.InitDB(cfg.Database, lgr)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			user, err := services.NewUserService(db).CreateSuperuser(cmd.Context(), email, password, firstName, lastName)
			if err != nil {
				if appErr, ok := apperrors.As(err); ok && appErr.Fields.HasErrors() {
					return fmt.Errorf("%s: %v", appErr.Message, appErr.Fields)
				}
				return err
			}
			fmt.Printf("Superuser %s created (id %s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Login email of the new account")
	cmd.Flags().String("password", "", "Password of the new account")
	cmd.Flags().String("first-name", "", "First name")
	cmd.Flags().String("last-name", "", "Last name")
	return cmd
}
