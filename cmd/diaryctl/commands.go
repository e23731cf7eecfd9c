package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/diary-api/cmd/diaryctl/ui"
	"github.com/redmonkez12/diary-api/internal/app"
	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/config"
	"github.com/redmonkez12/diary-api/internal/database"
	"github.com/redmonkez12/diary-api/internal/logging"
)

func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logging.NewLogger(cfg.Server.IsDevelopment()), nil
}

// withApp runs fn with a fully wired application
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a federated access token for local development",
		RunE:  runToken,
	}

	cmd.Flags().String("user", "", "User id (token subject)")
	cmd.Flags().String("email", "", "Email claim")
	cmd.Flags().String("name", "", "Name claim")
	cmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to ACCESS_TOKEN_DURATION)")
	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	req := &ui.TokenRequest{}
	req.UserID, _ = cmd.Flags().GetString("user")
	req.Email, _ = cmd.Flags().GetString("email")
	req.Name, _ = cmd.Flags().GetString("name")
	req.TTL, _ = cmd.Flags().GetDuration("ttl")
	if req.TTL == 0 {
		req.TTL = cfg.Auth.AccessTokenDuration
	}

	// Interactive mode when the subject is missing
	if req.UserID == "" {
		if err := ui.RunTokenForm(req); err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}

	if err := ui.ValidateTokenRequest(req); err != nil {
		ui.PrintError(cmd.ErrOrStderr(), err.Error())
		return err
	}

	tokens, err := app.NewTokenService(cfg.Auth)
	if err != nil {
		return err
	}

	token, err := tokens.CreateToken(auth.TokenClaims{
		UserID: req.UserID,
		Email:  req.Email,
		Name:   req.Name,
	}, req.TTL)
	if err != nil {
		ui.PrintError(cmd.ErrOrStderr(), err.Error())
		return err
	}

	ui.PrintAccessToken(cmd.OutOrStdout(), token, time.Now().Add(req.TTL))
	return nil
}

func newDispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Run one scheduled email pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				sentAny, err := a.Engine.CheckAndSend(ctx)
				if err != nil {
					ui.PrintError(cmd.ErrOrStderr(), err.Error())
					return err
				}

				if sentAny {
					ui.PrintSuccess(cmd.OutOrStdout(), "Recommendation emails sent.")
				} else {
					ui.PrintInfo(cmd.OutOrStdout(), "Nobody was due.")
				}
				return nil
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrate := func(fn func(m *database.Migrator, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a := &app.App{Config: cfg, Logger: logger}
			return a.Migrate(func(m *database.Migrator) error { return fn(m, cmd) })
		}
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: migrate(func(m *database.Migrator, cmd *cobra.Command) error {
			if err := m.Up(); err != nil {
				return err
			}
			ui.PrintSuccess(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		}),
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: migrate(func(m *database.Migrator, cmd *cobra.Command) error {
			steps, _ := cmd.Flags().GetInt("steps")
			yes, _ := cmd.Flags().GetBool("yes")

			if !yes {
				ok, err := ui.Confirm(fmt.Sprintf("Roll back %d migration(s)?", steps), "Rolled back tables lose their data.")
				if err != nil || !ok {
					ui.PrintInfo(cmd.OutOrStdout(), "Aborted.")
					return err
				}
			}

			if err := m.Down(steps); err != nil {
				return err
			}
			ui.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Rolled back %d migration(s).", steps))
			return nil
		}),
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	downCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: migrate(func(m *database.Migrator, cmd *cobra.Command) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		}),
	}

	cmd.AddCommand(upCmd, downCmd, versionCmd)
	return cmd
}

func newPATCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pat",
		Short: "Manage personal access tokens",
	}
	cmd.PersistentFlags().String("user", "", "Owner user id")
	cmd.MarkPersistentFlagRequired("user")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				result, err := a.PATs.CreateToken(ctx, userID)
				if err != nil {
					ui.PrintError(cmd.ErrOrStderr(), err.Error())
					return err
				}
				ui.PrintCreatedPAT(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				tokens, err := a.PATs.GetUserTokens(ctx, userID)
				if err != nil {
					return err
				}
				ui.PrintPATs(cmd.OutOrStdout(), tokens)
				return nil
			})
		},
	}

	revokeCmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke one of a user's tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			yes, _ := cmd.Flags().GetBool("yes")

			if !yes {
				ok, err := ui.Confirm("Revoke token "+args[0]+"?", "Clients using it will get 401 right away.")
				if err != nil || !ok {
					ui.PrintInfo(cmd.OutOrStdout(), "Aborted.")
					return err
				}
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if !a.PATs.RevokeToken(ctx, args[0], userID) {
					err := fmt.Errorf("token %s not found for user %s", args[0], userID)
					ui.PrintError(cmd.ErrOrStderr(), err.Error())
					return err
				}
				ui.PrintSuccess(cmd.OutOrStdout(), "Token revoked.")
				return nil
			})
		},
	}
	revokeCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")

	cmd.AddCommand(createCmd, listCmd, revokeCmd)
	return cmd
}
