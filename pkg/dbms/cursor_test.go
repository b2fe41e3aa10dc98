package dbms

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayCursor(t *testing.T) {
	c, err := NewArrayCursor([]string{"gene_id", "project_id"}, [][]any{
		{"PF3D7_0100100", "PlasmoDB"},
		{"TGME49_200010", "ToxoDB"},
	})
	require.NoError(t, err)

	_, err = c.Get("gene_id")
	assert.ErrorIs(t, err, ErrNoRow, "cursor starts before the first row")

	require.True(t, c.Next())
	v, err := c.Get("GENE_ID")
	require.NoError(t, err)
	assert.Equal(t, "PF3D7_0100100", v)

	_, err = c.Get("organism")
	assert.ErrorIs(t, err, ErrColumnNotFound)

	require.True(t, c.Next())
	v, err = c.Get("project_id")
	require.NoError(t, err)
	assert.Equal(t, "ToxoDB", v)

	assert.False(t, c.Next())
	assert.False(t, c.Next())
	assert.NoError(t, c.Err())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, err = c.Get("gene_id")
	assert.ErrorIs(t, err, ErrCursorClosed)
}

func TestNewArrayCursor_ShortRow(t *testing.T) {
	_, err := NewArrayCursor([]string{"a", "b"}, [][]any{{"x", "y"}, {"z"}})
	assert.ErrorIs(t, err, ErrShortRow)
}

func TestDrain(t *testing.T) {
	c, err := NewArrayCursor([]string{"a"}, [][]any{{1}, {2}, {3}})
	require.NoError(t, err)

	rows, err := Drain(c)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{1}, {2}, {3}}, rows)
	assert.False(t, c.Next(), "drained cursor is closed")
}

func newMockPlatform(t *testing.T, dialect Dialect) (*SQLPlatform, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLPlatform(db, dialect), mock
}

func TestSQLCursor(t *testing.T) {
	p, mock := newMockPlatform(t, postgresDialect{})

	mock.ExpectQuery(`SELECT gene_id, name FROM genes WHERE organism = \$1`).
		WithArgs("P. falciparum").
		WillReturnRows(sqlmock.NewRows([]string{"gene_id", "name"}).
			AddRow([]byte("g1"), "alpha").
			AddRow([]byte("g2"), nil)).
		RowsWillBeClosed()

	c, err := p.Query(context.Background(), Raw("SELECT gene_id, name FROM genes WHERE organism = ?", "P. falciparum"))
	require.NoError(t, err)

	var ids []any
	for c.Next() {
		v, err := c.Get("gene_id")
		require.NoError(t, err)
		ids = append(ids, v)
	}
	require.NoError(t, c.Err())
	assert.Equal(t, []any{"g1", "g2"}, ids, "byte slices are normalized to strings")
	assert.Equal(t, []string{"gene_id", "name"}, c.Columns())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCursor_RowError(t *testing.T) {
	p, mock := newMockPlatform(t, sqliteDialect{})

	mock.ExpectQuery("SELECT id FROM t").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow(1).
			RowError(0, errors.New("disk I/O error")))

	c, err := p.Query(context.Background(), Raw("SELECT id FROM t"))
	require.NoError(t, err)
	defer CloseQuietly(c, "test cursor")

	assert.False(t, c.Next())
	assert.EqualError(t, c.Err(), "disk I/O error")
}

func TestSQLPlatform_QueryError(t *testing.T) {
	p, mock := newMockPlatform(t, postgresDialect{})

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))

	_, err := p.Query(context.Background(), Raw("SELECT * FROM missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATA_ACCESS")
	assert.Contains(t, err.Error(), "SELECT * FROM missing")
}

func TestSQLPlatform_Scalar(t *testing.T) {
	p, mock := newMockPlatform(t, postgresDialect{})

	mock.ExpectQuery(`SELECT count\(\*\) FROM genes WHERE x = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	v, err := p.Scalar(context.Background(), Raw("SELECT count(*) FROM genes WHERE x = ?", 7))
	require.NoError(t, err)
	n, err := ScalarInt(v)
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLPlatform_ScalarNoRows(t *testing.T) {
	p, mock := newMockPlatform(t, sqliteDialect{})

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n"}))

	_, err := p.Scalar(context.Background(), Raw("SELECT n FROM t"))
	assert.ErrorIs(t, err, ErrNoRow)
}

func TestScalarInt(t *testing.T) {
	tests := []struct {
		in      any
		want    int
		wantErr bool
	}{
		{int64(3), 3, false},
		{int32(4), 4, false},
		{5, 5, false},
		{float64(6), 6, false},
		{float64(6.5), 0, true},
		{"7", 7, false},
		{"x", 0, true},
		{nil, 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := ScalarInt(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFromBuilder_ArgumentOrder(t *testing.T) {
	inner := Raw("SELECT id FROM t WHERE a = ?", "A")
	b := sq.Select("x.id").From("(" + inner.SQL + ") x").Where(sq.Eq{"x.b": "B"})

	f, err := FromBuilder(b, inner)
	require.NoError(t, err)
	assert.Equal(t, "SELECT x.id FROM (SELECT id FROM t WHERE a = ?) x WHERE x.b = ?", f.SQL)
	assert.Equal(t, []any{"A", "B"}, f.Args)
}
