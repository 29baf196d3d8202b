// Package cli holds the playdate-admin operator commands.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/playdate-api/internal/config"
	"github.com/dimitrije/playdate-api/internal/database"
	"github.com/dimitrije/playdate-api/internal/logging"
	"github.com/spf13/cobra"
)

// Exit codes for admin commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for anything that is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

type RootOptions struct {
	Verbose bool
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "playdate-admin",
		Short: "Operator commands for the playdate API",
		Long:  "Run migrations, re-run connection resolution and maintain the pending invitation ledger.",
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewResolveConnectionCommand(opts))
	cmd.AddCommand(NewPrunePendingCommand(opts))
	cmd.AddCommand(NewIssueTokenCommand(opts))

	return cmd
}

// connect loads config and opens the database for a single command run.
func connect(ctx context.Context, opts *RootOptions) (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logging.Setup(level, false)

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to connect to database", err)
	}
	db.TxTimeout = cfg.TxTimeout

	return cfg, db, nil
}
