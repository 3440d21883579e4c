// Command vaultctl is the operator CLI: schema migrations, access-token
// issuance and config inspection.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/neurovault/vault/internal/clock"
	"github.com/neurovault/vault/internal/config"
	"github.com/neurovault/vault/internal/domain"
	"github.com/neurovault/vault/internal/repository"
	"github.com/neurovault/vault/internal/service"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config, honouring --config over CONFIG_FILE.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := os.Setenv("CONFIG_FILE", path); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:          "vaultctl",
	Short:        "Operate a neurovault deployment",
	SilenceUsage: true,
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := withDB(cmd, repository.Migrate); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, repository.MigrationStatus)
	},
}

// token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage access tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue an access token for a principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.JWT.AccessSecret == "" {
			return fmt.Errorf("JWT_ACCESS_SECRET must be set")
		}

		user, _ := cmd.Flags().GetString("user")
		principal, err := uuid.Parse(user)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		role, _ := cmd.Flags().GetString("role")
		if !domain.UserRole(role).IsValid() {
			return fmt.Errorf("invalid --role %q", role)
		}
		if ttl, _ := cmd.Flags().GetDuration("ttl"); ttl > 0 {
			cfg.JWT.AccessTTL = ttl
		}

		tok, err := service.NewAuthService(cfg.JWT, clock.Real{}).IssueAccessToken(principal, domain.UserRole(role))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		redacted := *cfg
		if redacted.JWT.AccessSecret != "" {
			redacted.JWT.AccessSecret = "********"
		}
		if redacted.DB.DSN != "" {
			redacted.DB.DSN = "********"
		}
		if err := toml.NewEncoder(cmd.OutOrStdout()).Encode(redacted); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "\nconfig is not valid:\n%v\n", err)
		}
		return nil
	},
}

// withDB connects to the configured database and runs op against it.
func withDB(cmd *cobra.Command, op func(context.Context, *sql.DB) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DATABASE_DSN must be set")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	db, err := repository.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	return op(ctx, db.DB)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "TOML config file (overrides CONFIG_FILE)")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	tokenCmd.AddCommand(tokenIssueCmd)
	tokenIssueCmd.Flags().StringP("user", "u", "", "Principal UUID")
	tokenIssueCmd.Flags().StringP("role", "r", string(domain.RoleUser), "Role claim (user|admin)")
	tokenIssueCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to JWT_ACCESS_TTL)")
	_ = tokenIssueCmd.MarkFlagRequired("user")

	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(configCmd)
}
