package cli

import (
	"context"
	"fmt"

	"github.com/dimitrije/playdate-api/internal/notify"
	"github.com/dimitrije/playdate-api/internal/services"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Apply database migrations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, db, err := connect(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(ctx); err != nil {
				return WrapExitError(ExitFailure, "migration failed", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func NewResolveConnectionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve-connection <connection-id>",
		Short: "Re-run invitation resolution for an existing connection",
		Long: `Promote pending invitations and auto-notify activities for both sides of
a connection. Safe to run repeatedly: invitations that already exist are
left alone.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			connectionID, err := uuid.Parse(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid connection id", err)
			}

			ctx := context.Background()
			_, db, err := connect(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := services.NewConnectionService(db, services.NewResolutionEngine(), notify.Log{})
			res, err := svc.ResolveConnection(ctx, connectionID)
			if err != nil {
				return WrapExitError(ExitFailure, "resolution failed", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "promoted %d, auto-notified %d\n", len(res.Promoted), len(res.AutoNotified))
			return nil
		},
	}
}

func NewPrunePendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "prune-pending",
		Short:         "Delete pending invitations already covered by a real invitation",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, db, err := connect(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()

			pruned, err := services.NewInvitationService(db, nil).PrunePending(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "prune failed", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d pending invitations\n", pruned)
			return nil
		},
	}
}

type issueTokenOptions struct {
	*RootOptions
	Name string
}

func NewIssueTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &issueTokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "issue-token <email>",
		Short: "Issue an access token for a guardian",
		Long: `Issue an access token for the guardian with the given email. With --name
the guardian is created when missing.

Examples:
  playdate-admin issue-token ana@example.com
  playdate-admin issue-token ana@example.com --name "Ana"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, db, err := connect(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer db.Close()

			directory := services.NewDirectoryService(db)
			email := args[0]

			var guardianID uuid.UUID
			if opts.Name != "" {
				g, err := directory.FindOrCreateGuardian(ctx, email, opts.Name)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to create guardian", err)
				}
				guardianID = g.ID
			} else {
				g, err := directory.GetGuardianByEmail(ctx, email)
				if err != nil {
					return WrapExitError(ExitFailure, "guardian lookup failed", err)
				}
				guardianID = g.ID
			}

			tok, err := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry).IssueAccessToken(guardianID, email)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to issue token", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "create the guardian with this name if missing")

	return cmd
}
