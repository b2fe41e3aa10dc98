package answer

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

const mockModel = `
querySets:
  - name: Ids
    queries:
      - name: All
        sql: SELECT gene_id FROM genes
        columns: [{name: gene_id}]
recordClasses:
  - name: Genes.Gene
    primaryKey: {columns: [gene_id]}
    filters:
      - name: f1
        sql: SELECT gene_id FROM ($$id_sql$$) x WHERE x.gene_id LIKE 'PF%'
      - name: f2
        sql: SELECT gene_id FROM ($$id_sql$$) x WHERE x.gene_id LIKE 'TG%'
questions:
  - name: Q.All
    recordClass: Genes.Gene
    idQuery: Ids.All
`

func newMockAnswer(t *testing.T, opts ...Option) (*AnswerValue, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	d, err := dbms.DialectFor(dbms.PlatformPostgres)
	require.NoError(t, err)
	platform := dbms.NewSQLPlatform(db, d)

	m, err := model.Parse([]byte(mockModel), platform, nil)
	require.NoError(t, err)
	q, err := m.Question("Q.All")
	require.NoError(t, err)

	av, err := NewService(platform, NewMemoryFactory(), nil).MakeAnswerValue(q, nil, opts...)
	require.NoError(t, err)
	return av, mock
}

func TestFilterSize_CountedOnce(t *testing.T) {
	ctx := context.Background()
	av, mock := newMockAnswer(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM \(SELECT DISTINCT bidq.gene_id FROM \(SELECT gene_id FROM \(SELECT gene_id FROM genes\) x WHERE x.gene_id LIKE 'PF%'\) AS bidq\) AS f`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT count\(\*\) FROM .+ LIKE 'TG%'`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	for range 2 {
		n, err := av.FilterSize(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	}
	n, err := av.FilterSize(ctx, "f2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = av.FilterSize(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 7, n, "switching back reuses the count")

	page, err := av.WithPage(21, 40)
	require.NoError(t, err)
	n, err = page.FilterSize(ctx, "f2")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "pages start from a copy of the counts")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilterSize_FailureIsRetried(t *testing.T) {
	ctx := context.Background()
	av, mock := newMockAnswer(t)

	mock.ExpectQuery(`SELECT count`).WillReturnError(errors.New("connection reset"))
	mock.ExpectQuery(`SELECT count`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	_, err := av.FilterSize(ctx, "f1")
	require.Error(t, err)
	assert.True(t, wdkerr.IsDataAccess(err))

	n, err := av.FilterSize(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilterSize_UnknownFilter(t *testing.T) {
	av, mock := newMockAnswer(t)
	_, err := av.FilterSize(context.Background(), "nope")
	assert.True(t, wdkerr.IsModelConfiguration(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		size, pageSize, want int
	}{
		{0, 10, 0},
		{10, 10, 1},
		{11, 10, 2},
		{1, 10, 1},
		{20, 10, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageCount(tt.size, tt.pageSize), "size=%d pageSize=%d", tt.size, tt.pageSize)
	}
}

func TestPageCount_FromResultSize(t *testing.T) {
	ctx := context.Background()
	av, mock := newMockAnswer(t, WithRange(1, 10))

	mock.ExpectQuery(`SELECT count\(\*\) FROM \(SELECT DISTINCT bidq.gene_id FROM \(SELECT gene_id FROM genes\) AS bidq\) AS f`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(11)))

	n, err := av.PageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = av.PageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordInstances_ShortPage(t *testing.T) {
	ctx := context.Background()
	av, mock := newMockAnswer(t, WithRange(1, 3))

	mock.ExpectQuery(`SELECT idq.gene_id FROM \(SELECT DISTINCT bidq.gene_id FROM \(SELECT gene_id FROM genes\) AS bidq\) AS idq ORDER BY idq.gene_id ASC LIMIT 3 OFFSET 0`).
		WillReturnRows(sqlmock.NewRows([]string{"gene_id"}).AddRow("A").AddRow("B"))
	mock.ExpectQuery(`SELECT count`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))

	_, err := av.RecordInstances(ctx)
	require.Error(t, err)
	assert.True(t, wdkerr.IsIntegrity(err))
	assert.Contains(t, err.Error(), "Ids.All")
	assert.Contains(t, err.Error(), "has 2 records, expected 3")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordInstances_DuplicateKeys(t *testing.T) {
	ctx := context.Background()
	av, mock := newMockAnswer(t, WithRange(1, 3))

	mock.ExpectQuery(`SELECT idq.gene_id`).
		WillReturnRows(sqlmock.NewRows([]string{"gene_id"}).AddRow("A").AddRow("A").AddRow("B"))
	mock.ExpectQuery(`SELECT count`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	_, err := av.RecordInstances(ctx)
	require.Error(t, err)
	assert.True(t, wdkerr.IsIntegrity(err), "a collision surfaces as a short page")
	assert.Equal(t, 1, av.Collisions(), "collisions are kept when the page fails")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordInstance_Lookup(t *testing.T) {
	ctx := context.Background()
	av, mock := newMockAnswer(t, WithRange(1, 2))

	mock.ExpectQuery(`SELECT idq.gene_id`).
		WillReturnRows(sqlmock.NewRows([]string{"gene_id"}).AddRow("A").AddRow([]byte("B")))
	mock.ExpectQuery(`SELECT count`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	pk, err := NewPrimaryKeyValue([]string{"gene_id"}, "B")
	require.NoError(t, err)
	r, err := av.RecordInstance(ctx, pk)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.PrimaryKey().Equal(pk))

	missing, err := NewPrimaryKeyValue([]string{"gene_id"}, "Z")
	require.NoError(t, err)
	r, err = av.RecordInstance(ctx, missing)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrimaryKeyValue(t *testing.T) {
	a, err := NewPrimaryKeyValue([]string{"gene_id", "version"}, "PF3D7_0100100", int64(2))
	require.NoError(t, err)
	b, err := NewPrimaryKeyValue([]string{"gene_id", "version"}, []byte("PF3D7_0100100"), "2")
	require.NoError(t, err)

	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a.Equal(b))
	assert.Equal(t, "gene_id = PF3D7_0100100, version = 2", a.String())
	assert.Equal(t, map[string]string{"gene_id": "PF3D7_0100100", "version": "2"}, a.Map())

	_, err = NewPrimaryKeyValue([]string{"gene_id"}, "a", "b")
	assert.Error(t, err)
}
