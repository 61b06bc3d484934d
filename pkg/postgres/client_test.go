package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	if os.Getenv("DS_TEST_POSTGRES") == "" {
		t.Skip("DS_TEST_POSTGRES not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	c, err := New(context.Background(), cfg.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMigrateAppliesOnce(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	_, err := c.ExecContext(ctx, `DROP TABLE IF EXISTS migrate_check; DELETE FROM schema_migrations WHERE name = 'test_migrate_check'`)
	if err != nil {
		// schema_migrations may not exist yet on a fresh database
		_, err = c.ExecContext(ctx, `DROP TABLE IF EXISTS migrate_check`)
		require.NoError(t, err)
	}

	m := Migration{Name: "test_migrate_check", SQL: `CREATE TABLE migrate_check (id INT)`}
	require.NoError(t, c.Migrate(ctx, m))
	// CREATE TABLE without IF NOT EXISTS would fail on a second run
	require.NoError(t, c.Migrate(ctx, m))
}

func TestInTxRollsBackOnError(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	_, err := c.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS tx_check (id INT PRIMARY KEY)`)
	require.NoError(t, err)
	_, err = c.ExecContext(ctx, `TRUNCATE tx_check`)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = c.InTx(ctx, func(tx Querier) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tx_check (id) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, c.QueryRowContext(ctx, `SELECT COUNT(*) FROM tx_check`).Scan(&n))
	assert.Zero(t, n)
}
