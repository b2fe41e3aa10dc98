package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

func leafQuery(t *testing.T, p dbms.Platform, name, sql string) *Query {
	t.Helper()
	q := &Query{Name: name, SQL: sql, Columns: []Column{{Name: "gene_id"}, {Name: "project_id"}}}
	require.NoError(t, NewQuerySet("GeneQueries").Add(q))
	require.NoError(t, q.Resolve(p, nil))
	return q
}

func TestBooleanInstance_SQL(t *testing.T) {
	tests := []struct {
		platform string
		op       Operator
		setOp    string
		alias    string
	}{
		{dbms.PlatformPostgres, OpAnd, "INTERSECT", " AS "},
		{dbms.PlatformPostgres, OpOr, "UNION", " AS "},
		{dbms.PlatformPostgres, OpNot, "EXCEPT", " AS "},
		{dbms.PlatformOracle, OpNot, "MINUS", " "},
	}
	for _, tt := range tests {
		t.Run(tt.platform+"/"+string(tt.op), func(t *testing.T) {
			p, _ := newTestPlatform(t, tt.platform)
			left, err := leafQuery(t, p, "A", "SELECT gene_id, project_id, score FROM a").MakeInstance(nil)
			require.NoError(t, err)
			right, err := leafQuery(t, p, "B", "SELECT gene_id, project_id FROM b").MakeInstance(nil)
			require.NoError(t, err)

			b, err := NewBooleanInstance(tt.op, left, right, []string{"gene_id", "project_id"})
			require.NoError(t, err)
			assert.Equal(t, KindBoolean, b.Kind())
			assert.Equal(t, []string{"gene_id", "project_id"}, b.Query().ColumnNames())

			f, err := b.SQL(context.Background())
			require.NoError(t, err)
			assert.Equal(t,
				"SELECT bl.gene_id, bl.project_id FROM (SELECT gene_id, project_id, score FROM a)"+tt.alias+"bl "+
					tt.setOp+" SELECT br.gene_id, br.project_id FROM (SELECT gene_id, project_id FROM b)"+tt.alias+"br",
				f.SQL)
		})
	}
}

func TestBooleanInstance_Checksum(t *testing.T) {
	p, _ := newTestPlatform(t, dbms.PlatformSQLite)
	left, err := leafQuery(t, p, "A", "SELECT gene_id, project_id FROM a").MakeInstance(nil)
	require.NoError(t, err)
	right, err := leafQuery(t, p, "B", "SELECT gene_id, project_id FROM b").MakeInstance(nil)
	require.NoError(t, err)
	pk := []string{"gene_id", "project_id"}

	and1, err := NewBooleanInstance(OpAnd, left, right, pk)
	require.NoError(t, err)
	and2, err := NewBooleanInstance(OpAnd, left, right, pk)
	require.NoError(t, err)
	or1, err := NewBooleanInstance(OpOr, left, right, pk)
	require.NoError(t, err)
	not1, err := NewBooleanInstance(OpNot, right, left, pk)
	require.NoError(t, err)
	not2, err := NewBooleanInstance(OpNot, left, right, pk)
	require.NoError(t, err)

	assert.Equal(t, and1.Checksum(), and2.Checksum())
	assert.NotEqual(t, and1.Checksum(), or1.Checksum())
	assert.NotEqual(t, not1.Checksum(), not2.Checksum())
	assert.Equal(t, "AND", and1.Values()["operator"])
}

func TestNewBooleanInstance_Errors(t *testing.T) {
	p, _ := newTestPlatform(t, dbms.PlatformSQLite)
	other, _ := newTestPlatform(t, dbms.PlatformSQLite)
	left, err := leafQuery(t, p, "A", "SELECT gene_id, project_id FROM a").MakeInstance(nil)
	require.NoError(t, err)
	right, err := leafQuery(t, p, "B", "SELECT gene_id, project_id FROM b").MakeInstance(nil)
	require.NoError(t, err)
	elsewhere, err := leafQuery(t, other, "C", "SELECT gene_id, project_id FROM c").MakeInstance(nil)
	require.NoError(t, err)

	_, err = NewBooleanInstance(OpAnd, left, right, nil)
	assert.True(t, wdkerr.IsModelConfiguration(err))

	_, err = NewBooleanInstance(OpAnd, left, right, []string{"source_id"})
	assert.True(t, wdkerr.IsModelConfiguration(err))

	_, err = NewBooleanInstance(OpAnd, left, elsewhere, []string{"gene_id"})
	assert.True(t, wdkerr.IsModelConfiguration(err))

	_, err = NewBooleanInstance("XOR", left, right, []string{"gene_id"})
	assert.True(t, wdkerr.IsParameterValidation(err))
}

func TestParseOperator(t *testing.T) {
	for in, want := range map[string]Operator{
		"and": OpAnd, "INTERSECT": OpAnd, "or": OpOr, "union": OpOr, "Not": OpNot, "minus": OpNot, "except": OpNot,
	} {
		got, err := ParseOperator(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

type fakeInvoker struct {
	calls   int
	rows    [][]string
	message string
	err     error
}

func (f *fakeInvoker) InvokePlugin(_ context.Context, _ string, _ map[string]string, _ []string) ([][]string, string, error) {
	f.calls++
	return f.rows, f.message, f.err
}

func pluginQuery(t *testing.T, p dbms.Platform, inv PluginInvoker) *Query {
	t.Helper()
	q := &Query{
		Name:    "GenesByBlast",
		Plugin:  "blast",
		Columns: []Column{{Name: "gene_id"}, {Name: "project_id"}},
		Params:  []Param{&StringParam{ParamBase: ParamBase{Name: "sequence", Prompt: "Sequence"}}},
	}
	require.NoError(t, NewQuerySet("GeneQueries").Add(q))
	require.NoError(t, q.Resolve(p, inv))
	return q
}

func TestPluginInstance(t *testing.T) {
	p, _ := newTestPlatform(t, dbms.PlatformPostgres)
	inv := &fakeInvoker{
		rows:    [][]string{{"g1", "PlasmoDB"}, {"g2", "ToxoDB"}, {"g2", "ToxoDB"}},
		message: "PlasmoDB:1,ToxoDB:1",
	}
	inst, err := pluginQuery(t, p, inv).MakeInstance(map[string]string{"sequence": "MKV"})
	require.NoError(t, err)
	ctx := context.Background()

	f, err := inst.SQL(ctx)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT CAST(? AS VARCHAR(4000)) AS gene_id, CAST(? AS VARCHAR(4000)) AS project_id"+
			" UNION ALL SELECT CAST(? AS VARCHAR(4000)) AS gene_id, CAST(? AS VARCHAR(4000)) AS project_id"+
			" UNION ALL SELECT CAST(? AS VARCHAR(4000)) AS gene_id, CAST(? AS VARCHAR(4000)) AS project_id",
		f.SQL)
	assert.Equal(t, []any{"g1", "PlasmoDB", "g2", "ToxoDB", "g2", "ToxoDB"}, f.Args)

	n, err := inst.ResultSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	msg, err := inst.ResultMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PlasmoDB:1,ToxoDB:1", msg)

	c, err := inst.Results(ctx)
	require.NoError(t, err)
	rows, err := dbms.Drain(c)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	assert.Equal(t, 1, inv.calls, "plugin runs once per instance")
}

func TestPluginInstance_NoMessageCountsDistinctRows(t *testing.T) {
	p, _ := newTestPlatform(t, dbms.PlatformSQLite)
	inv := &fakeInvoker{rows: [][]string{{"g1", "P"}, {"g1", "P"}, {"g2", "P"}}}
	inst, err := pluginQuery(t, p, inv).MakeInstance(map[string]string{"sequence": "MKV"})
	require.NoError(t, err)

	n, err := inst.ResultSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPluginInstance_Errors(t *testing.T) {
	p, _ := newTestPlatform(t, dbms.PlatformSQLite)

	boom := errors.New("plugin crashed")
	inst, err := pluginQuery(t, p, &fakeInvoker{err: boom}).MakeInstance(map[string]string{"sequence": "MKV"})
	require.NoError(t, err)
	_, err = inst.SQL(context.Background())
	assert.ErrorIs(t, err, boom)

	inst, err = pluginQuery(t, p, &fakeInvoker{rows: [][]string{{"only-one"}}}).MakeInstance(map[string]string{"sequence": "MKV"})
	require.NoError(t, err)
	_, err = inst.Results(context.Background())
	assert.True(t, wdkerr.IsModelConfiguration(err))
}

func TestLiteralRelation_Empty(t *testing.T) {
	d, err := dbms.DialectFor(dbms.PlatformOracle)
	require.NoError(t, err)
	f := LiteralRelation(d, []string{"a", "b"}, nil)
	assert.Equal(t, "SELECT CAST(NULL AS VARCHAR(4000)) AS a, CAST(NULL AS VARCHAR(4000)) AS b FROM dual WHERE 1 = 0", f.SQL)
	assert.Empty(t, f.Args)
}

func TestKeyInstance(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPlatform(t, dbms.PlatformPostgres)

	k, err := NewKeyInstance(p, "Genes.Gene", []string{"gene_id", "project_id"}, []string{"PF1", "PlasmoDB"})
	require.NoError(t, err)
	assert.Equal(t, "Genes.Gene.key", k.Query().FullName())
	assert.Equal(t, KindLeaf, k.Kind())
	assert.Equal(t, map[string]string{"gene_id": "PF1", "project_id": "PlasmoDB"}, k.Values())

	f, err := k.SQL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SELECT CAST(? AS VARCHAR(4000)) AS gene_id, CAST(? AS VARCHAR(4000)) AS project_id", f.SQL)
	assert.Equal(t, []any{"PF1", "PlasmoDB"}, f.Args)

	cursor, err := k.Results(ctx)
	require.NoError(t, err)
	require.True(t, cursor.Next())
	v, err := cursor.Get("project_id")
	require.NoError(t, err)
	assert.Equal(t, "PlasmoDB", v)
	assert.False(t, cursor.Next())

	n, err := k.ResultSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	other, err := NewKeyInstance(p, "Genes.Gene", []string{"gene_id", "project_id"}, []string{"PF2", "PlasmoDB"})
	require.NoError(t, err)
	assert.NotEqual(t, k.Checksum(), other.Checksum())

	_, err = NewKeyInstance(p, "Genes.Gene", []string{"gene_id", "project_id"}, []string{"PF1"})
	assert.True(t, wdkerr.IsModelConfiguration(err))
}

func TestParseProjectCounts(t *testing.T) {
	counts, err := ParseProjectCounts("PlasmoDB:12, ToxoDB:3,CryptoDB:0")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"PlasmoDB": 12, "ToxoDB": 3, "CryptoDB": 0}, counts)

	total, err := TotalCount("PlasmoDB:12,ToxoDB:3")
	require.NoError(t, err)
	assert.Equal(t, 15, total)

	for _, bad := range []string{"PlasmoDB", "PlasmoDB:x", ":3", "PlasmoDB:1,,ToxoDB:2", "PlasmoDB:1,PlasmoDB:2", "PlasmoDB:-1"} {
		_, err := ParseProjectCounts(bad)
		assert.True(t, wdkerr.IsModelConfiguration(err), bad)
	}
}

func TestExpandMacros(t *testing.T) {
	f, err := ExpandMacros("SELECT $$a$$, '$$' || x, $$b$$ FROM t WHERE $$not a macro$$", FixedResolver(map[string]dbms.Fragment{
		"a": dbms.Raw("?", 1),
		"b": dbms.Raw("(?, ?)", 2, 3),
	}))
	require.NoError(t, err)
	assert.Equal(t, "SELECT ?, '$$' || x, (?, ?) FROM t WHERE $$not a macro$$", f.SQL)
	assert.Equal(t, []any{1, 2, 3}, f.Args)

	_, err = ExpandMacros("SELECT $$missing$$", FixedResolver(nil))
	assert.True(t, wdkerr.IsModelConfiguration(err))

	assert.Equal(t, []string{"a", "b"}, MacroNames("$$a$$ $$b$$ $$a$$"))
}
