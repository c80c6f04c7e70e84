package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/auth"
)

func TestTokenCmd_SignsForUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	userID := "6f1c2f55-6a0e-4c3b-9d51-0d2f4c6b7a10"

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--user", userID, "--ttl", time.Hour.String()})
	require.NoError(t, cmd.Execute())

	parsed, err := auth.ParseToken(strings.TrimSpace(out.String()), "cli-secret")
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestTokenCmd_RejectsBadUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"token", "--user", "nope"})
	assert.ErrorContains(t, cmd.Execute(), "invalid --user")
}

func TestMigrateCmd_RequiresPostgres(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("DB_DRIVER", "sqlite")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate"})
	assert.ErrorContains(t, cmd.Execute(), "DB_DRIVER=postgres")
}
