package report

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EuPathDB/WSF/pkg/answer"
	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/model"
)

var fixtureSQL = []string{
	`CREATE TABLE genes (gene_id TEXT)`,
	`CREATE TABLE gene_products (gene_id TEXT, product TEXT)`,
	`INSERT INTO genes VALUES ('G2'), ('G3'), ('G1')`,
	`INSERT INTO gene_products VALUES ('G1', 'kinase'), ('G2', 'Transporter'), ('G3', 'protease')`,
}

func newAnswer(t *testing.T) *answer.AnswerValue {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range fixtureSQL {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	d, err := dbms.DialectFor(dbms.PlatformSQLite)
	require.NoError(t, err)
	platform := dbms.NewSQLPlatform(db, d)

	m, err := model.Load("testdata/genes.yaml", platform, nil)
	require.NoError(t, err)
	q, err := m.Question("Q.All")
	require.NoError(t, err)

	registry := answer.NewReporterRegistry()
	require.NoError(t, RegisterBuiltins(registry))

	av, err := answer.NewService(platform, answer.NewMemoryFactory(), registry).
		MakeAnswerValue(q, nil, answer.WithRange(1, 2))
	require.NoError(t, err)
	return av
}

func write(t *testing.T, r answer.Reporter) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Write(context.Background(), &buf))
	return buf.Bytes()
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRegisterBuiltins(t *testing.T) {
	r := answer.NewReporterRegistry()
	require.NoError(t, RegisterBuiltins(r))
	assert.Equal(t, []string{FullRecord, JSON, Tabular}, r.Names())

	err := RegisterBuiltins(r)
	assert.Error(t, err, "registering twice collides")
}

func TestTabular_WholeAnswer(t *testing.T) {
	av := newAnswer(t)
	r, err := av.CreateReport(context.Background(), "tab", nil)
	require.NoError(t, err)

	assert.Equal(t, "text/tab-separated-values", r.ContentType())
	assert.Equal(t, "txt", r.FileExtension())
	golden(t).Assert(t, "tabular", write(t, r))
}

func TestTabular_Options(t *testing.T) {
	av := newAnswer(t)
	r, err := av.CreateReport(context.Background(), "tab", map[string]string{
		PropIncludeHeader: "false",
		PropDivider:       ",",
		PropAttributes:    "product, primary_key",
		PropPageSize:      "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "kinase,G1\nTransporter,G2\nprotease,G3\n", string(write(t, r)))
}

func TestTabular_Range(t *testing.T) {
	av := newAnswer(t)
	r, err := av.CreateReportRange(context.Background(), "tab", map[string]string{PropIncludeHeader: "no"}, 2, 10)
	require.Error(t, err, "includeHeader must be a boolean")
	assert.Nil(t, r)

	r, err = av.CreateReportRange(context.Background(), "tab", map[string]string{PropIncludeHeader: "false"}, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, "G2\tTransporter\nG3\tprotease\n", string(write(t, r)))
}

func TestFullRecord(t *testing.T) {
	av := newAnswer(t)
	r, err := av.CreateReport(context.Background(), "full", nil)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", r.ContentType())
	golden(t).Assert(t, "full_record", write(t, r))
}

func TestJSON(t *testing.T) {
	av := newAnswer(t)
	r, err := av.CreateReport(context.Background(), "json", map[string]string{"indent": "true"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", r.ContentType())
	assert.Equal(t, "json", r.FileExtension())

	var doc struct {
		Question   string `json:"question"`
		Checksum   string `json:"checksum"`
		ResultSize int    `json:"resultSize"`
		Records    []struct {
			ID         map[string]string `json:"id"`
			Attributes map[string]any    `json:"attributes"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(write(t, r), &doc))

	assert.Equal(t, "Q.All", doc.Question)
	assert.Equal(t, av.Checksum(), doc.Checksum)
	assert.Equal(t, 3, doc.ResultSize)
	require.Len(t, doc.Records, 3)
	assert.Equal(t, map[string]string{"gene_id": "G1"}, doc.Records[0].ID)
	assert.Equal(t, "kinase", doc.Records[0].Attributes["product"])
	assert.Equal(t, map[string]any{"text": "G1", "url": "/gene/G1"}, doc.Records[0].Attributes["gene_link"])
}

func TestConfigure_Errors(t *testing.T) {
	av := newAnswer(t)
	ctx := context.Background()

	_, err := av.CreateReport(ctx, "tab", map[string]string{PropAttributes: "nope"})
	assert.Error(t, err)

	_, err = av.CreateReport(ctx, "tab", map[string]string{PropPageSize: "0"})
	assert.Error(t, err)

	_, err = av.CreateReport(ctx, "missing", nil)
	assert.ErrorIs(t, err, answer.ErrReporterNotFound)
}

func TestAllAttributes(t *testing.T) {
	av := newAnswer(t)
	r, err := av.CreateReportRange(context.Background(), "tab", map[string]string{PropAttributes: "all"}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Gene ID\tProduct\tGene Page\nG1\tkinase\tG1\n", string(write(t, r)))
}
