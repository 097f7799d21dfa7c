package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedSales(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE orders (region TEXT, amount REAL)`,
		`CREATE TABLE customers (id INTEGER, name TEXT)`,
		`INSERT INTO orders VALUES ('east', 100), ('west', 50), ('east', 25)`,
		`INSERT INTO customers VALUES (1, 'acme'), (2, 'globex')`,
	} {
		_, err := s.Query(ctx, stmt)
		require.NoError(t, err)
	}
}

func TestListTables(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.ListTables(ctx)
	require.ErrorIs(t, err, ErrNoTables)

	seedSales(t, s)
	tables, err := s.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, tables)
}

func TestTableSchema(t *testing.T) {
	s := testStore(t)
	seedSales(t, s)

	columns, err := s.TableSchema(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, Column{Name: "region", Type: "TEXT"}, columns[0])
	assert.Equal(t, Column{Name: "amount", Type: "REAL"}, columns[1])

	_, err = s.TableSchema(context.Background(), "nope")
	require.Error(t, err)
}

func TestQuery_RowsAsMaps(t *testing.T) {
	s := testStore(t)
	seedSales(t, s)

	result, err := s.Query(context.Background(),
		`SELECT region, SUM(amount) AS total FROM orders GROUP BY region ORDER BY total DESC;`)
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "total"}, result.Columns)
	require.Equal(t, 2, result.Count)
	assert.Equal(t, "east", result.Rows[0]["region"])
	assert.Equal(t, 125.0, result.Rows[0]["total"])
}

func TestQuery_ZeroRowsIsNotAnError(t *testing.T) {
	s := testStore(t)
	seedSales(t, s)

	result, err := s.Query(context.Background(), `SELECT * FROM orders WHERE region = 'south'`)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
}

func TestQuery_AfterClose(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Close())

	_, err := s.Query(context.Background(), `SELECT 1`)
	require.ErrorIs(t, err, ErrNoConnection)
}

func TestClassifyError(t *testing.T) {
	s := testStore(t)
	seedSales(t, s)
	ctx := context.Background()

	cases := []struct {
		name string
		sql  string
		tier ErrorTier
	}{
		{"missing table", `SELECT * FROM ghosts`, TierNoSuchTable},
		{"missing column", `SELECT ghost FROM orders`, TierNoSuchColumn},
		{"syntax", `SELEC * FROM orders`, TierSyntax},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Query(ctx, tc.sql)
			require.Error(t, err)
			assert.Equal(t, tc.tier, ClassifyError(err))
		})
	}

	assert.Equal(t, TierOperational, ClassifyError(errors.New("disk I/O error")))
}

func TestLoadFrame_DefaultTable(t *testing.T) {
	s := testStore(t)
	seedSales(t, s)

	// Empty table name loads the first table (alphabetically: customers).
	f, err := s.LoadFrame(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, f.Columns)
	assert.Equal(t, 2, f.Len())

	f, err = s.LoadFrame(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
}
