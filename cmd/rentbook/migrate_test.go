package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runMigrate(t *testing.T, args ...string) string {
	t.Helper()
	root := &cobra.Command{Use: "rentbook", SilenceUsage: true}
	root.AddCommand(newMigrateCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"migrate"}, args...))
	require.NoError(t, root.Execute())
	return out.String()
}

func TestMigrateCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "invoices.db")

	assert.Equal(t, "Schema version 2\n", runMigrate(t, "up", "--db", dbPath))
	assert.Equal(t, "Schema version 2\n", runMigrate(t, "version", "--db", dbPath))
	assert.Equal(t, "Schema version 1\n", runMigrate(t, "down", "--db", dbPath))
	assert.Equal(t, "No migrations applied.\n", runMigrate(t, "down", "--db", dbPath))
}
