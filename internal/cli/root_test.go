package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "playdate-admin", cmd.Use)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"migrate", "resolve-connection", "prune-pending", "issue-token"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestIssueTokenFlags(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"issue-token"})
	require.NoError(t, err)

	name := sub.Flags().Lookup("name")
	require.NotNil(t, name)
	assert.Equal(t, "", name.DefValue)
}

func TestResolveConnection_RequiresOneArg(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"resolve-connection"})

	err := cmd.Execute()
	assert.Error(t, err)
}

func TestResolveConnection_InvalidID(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"resolve-connection", "not-a-uuid"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad", nil)))

	wrapped := WrapExitError(ExitFailure, "outer", errors.New("inner"))
	assert.Equal(t, "outer: inner", wrapped.Error())
	assert.Equal(t, "inner", errors.Unwrap(wrapped).Error())
}
