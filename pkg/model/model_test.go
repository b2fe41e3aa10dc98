package model

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

func testPlatform(t *testing.T) dbms.Platform {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	d, err := dbms.DialectFor(dbms.PlatformSQLite)
	require.NoError(t, err)
	return dbms.NewSQLPlatform(db, d)
}

func loadGenes(t *testing.T) *Model {
	t.Helper()
	m, err := Load("testdata/genes.yaml", testPlatform(t), nil)
	require.NoError(t, err)
	return m
}

func TestLoad(t *testing.T) {
	m := loadGenes(t)
	assert.Equal(t, "PlasmoDB", m.Name)
	assert.Equal(t, "68", m.Version)
	require.Len(t, m.Questions(), 2)
	assert.Equal(t, "GeneQuestions.GenesByLength", m.Questions()[0].FullName)

	q, err := m.Question("GeneQuestions.GenesByOrganism")
	require.NoError(t, err)
	assert.Equal(t, "Genes by organism", q.DisplayName)
	assert.Equal(t, "GeneIds.GenesByOrganism", q.IDQuery.FullName())
	assert.Equal(t, []string{"gene_id", "project_id"}, q.RecordClass.PrimaryKeyColumns())
	assert.Equal(t, []SortSpec{{Attribute: "product", Ascending: true}}, q.DefaultSorting)

	rc := q.RecordClass
	names := []string{}
	for _, f := range q.AttributeFields() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"primary_key", "product", "chromosome", "start_min", "location_text", "gene_link", "score"}, names)

	product, err := q.AttributeField("product")
	require.NoError(t, err)
	cf, ok := product.(*ColumnField)
	require.True(t, ok)
	assert.Equal(t, "Product Description", cf.DisplayName())
	assert.Equal(t, 20, cf.TruncateTo())
	assert.True(t, cf.Column.IgnoreCase)
	assert.Equal(t, "GeneAttributes.Product", cf.Query.FullName())

	chrom, err := q.AttributeField("chromosome")
	require.NoError(t, err)
	assert.Equal(t, "chromosome_order", chrom.(*ColumnField).Column.SortExpression())

	score, err := q.AttributeField("score")
	require.NoError(t, err)
	assert.True(t, q.IsDynamic(score.(*ColumnField)))
	assert.False(t, q.IsDynamic(cf))

	link, err := q.AttributeField("gene_link")
	require.NoError(t, err)
	assert.Equal(t, []string{"gene_id"}, link.Dependents())

	text, err := rc.AttributeField("location_text")
	require.NoError(t, err)
	assert.Equal(t, []string{"chromosome", "start_min"}, text.Dependents())

	f, err := rc.Filter("pfal_only")
	require.NoError(t, err)
	applied, err := f.Apply(dbms.Raw("SELECT gene_id, project_id FROM genes WHERE organism = ?", "x"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT gene_id, project_id FROM (SELECT gene_id, project_id FROM genes WHERE organism = ?) f "+
		"WHERE f.project_id = 'PlasmoDB'", applied.SQL)
	assert.Equal(t, []any{"x"}, applied.Args)

	_, err = rc.Filter("missing")
	assert.True(t, wdkerr.IsModelConfiguration(err))

	rep, ok := rc.Reporter("tabular")
	require.True(t, ok)
	assert.Equal(t, "true", rep.Properties["includeHeader"])
}

func TestSummaryAttributeFields(t *testing.T) {
	m := loadGenes(t)
	q, err := m.Question("GeneQuestions.GenesByOrganism")
	require.NoError(t, err)

	fields, err := q.SummaryAttributeFields(nil)
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "primary_key", fields[0].Name(), "primary key is always first")
	assert.Equal(t, "product", fields[1].Name())

	fields, err = q.SummaryAttributeFields([]string{"score", "primary_key"})
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "score", fields[1].Name())

	_, err = q.SummaryAttributeFields([]string{"nope"})
	assert.True(t, wdkerr.IsModelConfiguration(err))

	assert.Len(t, q.SummaryAttributeFieldMap(), 3)
}

func TestSortable(t *testing.T) {
	m := loadGenes(t)
	q, err := m.Question("GeneQuestions.GenesByOrganism")
	require.NoError(t, err)

	for name, want := range map[string]bool{
		"primary_key":   true,
		"product":       true,
		"score":         true,
		"location_text": false,
		"gene_link":     false,
	} {
		f, err := q.AttributeField(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, Sortable(f), name)
	}
}

func TestResolveQuery(t *testing.T) {
	m := loadGenes(t)

	q, err := m.ResolveQuery("GeneAttributes.Location")
	require.NoError(t, err)
	assert.Equal(t, "Location", q.Name)

	for _, bad := range []string{"Location", "Nope.Location", "GeneAttributes.Nope"} {
		_, err := m.ResolveQuery(bad)
		assert.True(t, wdkerr.IsModelConfiguration(err), bad)
	}
}

func TestParse_Errors(t *testing.T) {
	base := `
querySets:
  - name: Ids
    queries:
      - name: All
        sql: SELECT gene_id FROM genes
        columns: [{name: gene_id}]
  - name: Attrs
    queries:
      - name: Bad
        sql: SELECT product FROM genes
        columns: [{name: product}]
`
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown param type", `
querySets:
  - name: Ids
    queries:
      - name: All
        sql: SELECT gene_id FROM genes WHERE x = $$x$$
        columns: [{name: gene_id}]
        params: [{name: x, type: date}]
`},
		{"attribute query without pk", base + `
recordClasses:
  - name: Genes.Gene
    primaryKey: {columns: [gene_id]}
    attributeQueries: [Attrs.Bad]
`},
		{"filter without id_sql", base + `
recordClasses:
  - name: Genes.Gene
    primaryKey: {columns: [gene_id]}
    filters: [{name: f, sql: SELECT 1}]
`},
		{"text attribute with unknown dependency", base + `
recordClasses:
  - name: Genes.Gene
    primaryKey: {columns: [gene_id]}
    textAttributes: [{name: t, text: "$$missing$$"}]
`},
		{"question with unknown summary attribute", base + `
recordClasses:
  - name: Genes.Gene
    primaryKey: {columns: [gene_id]}
questions:
  - name: Q.All
    recordClass: Genes.Gene
    idQuery: Ids.All
    summaryAttributes: [nope]
`},
		{"question with unknown record class", base + `
questions:
  - name: Q.All
    recordClass: Genes.Nope
    idQuery: Ids.All
`},
		{"duplicate question", base + `
recordClasses:
  - name: Genes.Gene
    primaryKey: {columns: [gene_id]}
questions:
  - {name: Q.All, recordClass: Genes.Gene, idQuery: Ids.All}
  - {name: Q.All, recordClass: Genes.Gene, idQuery: Ids.All}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), testPlatform(t), nil)
			require.Error(t, err)
			assert.True(t, wdkerr.IsModelConfiguration(err), "got %v", err)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("questions: [\n"), testPlatform(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing model")
}
