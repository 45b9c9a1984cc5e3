package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamesAreOrdered(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "0001_init.sql", names[0])
}

func TestInitSchemaCoversTables(t *testing.T) {
	body, err := Files.ReadFile("0001_init.sql")
	require.NoError(t, err)
	schema := string(body)
	for _, table := range []string{
		"parties", "colors", "qualities", "cuts", "orders", "order_cuts", "order_ground_colors",
		"design_set_tracking", "design_beam_config", "lot_register", "lot_design_allocations",
		"idempotency_keys", "audit_logs",
	} {
		require.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table+" ("), table)
	}
	require.Contains(t, schema, "remaining_sets >= 0")
}
