package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// pluginColumnType is the SQL type plugin values are cast to. Bound
// parameters in a SELECT list need an explicit type on some engines.
const pluginColumnType = "VARCHAR(4000)"

// PluginInstance is a leaf instance whose rows come from a WSF plugin. The
// plugin runs once; its rows are exposed to SQL as a literal relation and
// its message becomes the result message.
type PluginInstance struct {
	query    *Query
	values   map[string]string
	checksum string

	rows    [][]string
	message string
	fetched bool
}

func newPluginInstance(q *Query, values map[string]string) *PluginInstance {
	return &PluginInstance{
		query:    q,
		values:   values,
		checksum: Checksum(q.FullName(), values),
	}
}

// Query returns the bound query.
func (p *PluginInstance) Query() *Query { return p.query }

// Kind returns KindLeaf.
func (*PluginInstance) Kind() Kind { return KindLeaf }

// Values returns a copy of the bound values.
func (p *PluginInstance) Values() map[string]string { return copyValues(p.values) }

// Checksum identifies the instance.
func (p *PluginInstance) Checksum() string { return p.checksum }

func (p *PluginInstance) fetch(ctx context.Context) error {
	if p.fetched {
		return nil
	}
	columns := p.query.ColumnNames()
	rows, message, err := p.query.invoker.InvokePlugin(ctx, p.query.Plugin, p.Values(), columns)
	if err != nil {
		return fmt.Errorf("invoking plugin %s for %s: %w", p.query.Plugin, p.query.FullName(), err)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return wdkerr.ModelConfiguration("plugin %s returned %d values in row %d, query %s declares %d columns",
				p.query.Plugin, len(row), i, p.query.FullName(), len(columns))
		}
	}
	p.rows, p.message, p.fetched = rows, message, true
	return nil
}

// SQL renders the plugin rows as a UNION ALL of bound single-row SELECTs.
func (p *PluginInstance) SQL(ctx context.Context) (dbms.Fragment, error) {
	if err := p.fetch(ctx); err != nil {
		return dbms.Fragment{}, err
	}
	return LiteralRelation(p.query.platform.Dialect(), p.query.ColumnNames(), p.rows), nil
}

// LiteralRelation renders rows as SQL with the given column names.
func LiteralRelation(d dbms.Dialect, columns []string, rows [][]string) dbms.Fragment {
	if len(rows) == 0 {
		cols := make([]string, len(columns))
		for i, c := range columns {
			cols[i] = "CAST(NULL AS " + pluginColumnType + ") AS " + c
		}
		return dbms.Raw("SELECT " + strings.Join(cols, ", ") + d.Dual() + " WHERE 1 = 0")
	}

	selects := make([]string, len(rows))
	args := make([]any, 0, len(rows)*len(columns))
	cols := make([]string, len(columns))
	for i, row := range rows {
		for j, c := range columns {
			cols[j] = "CAST(? AS " + pluginColumnType + ") AS " + c
			args = append(args, row[j])
		}
		selects[i] = "SELECT " + strings.Join(cols, ", ") + d.Dual()
	}
	return dbms.Raw(strings.Join(selects, " UNION ALL "), args...)
}

// Results returns a cursor over the plugin rows.
func (p *PluginInstance) Results(ctx context.Context) (dbms.Cursor, error) {
	if err := p.fetch(ctx); err != nil {
		return nil, err
	}
	rows := make([][]any, len(p.rows))
	for i, row := range p.rows {
		rows[i] = make([]any, len(row))
		for j, v := range row {
			rows[i][j] = v
		}
	}
	return dbms.NewArrayCursor(p.query.ColumnNames(), rows)
}

// ResultSize returns the message total, or the number of distinct rows.
func (p *PluginInstance) ResultSize(ctx context.Context) (int, error) {
	if err := p.fetch(ctx); err != nil {
		return 0, err
	}
	if p.message != "" {
		return TotalCount(p.message)
	}
	distinct := make(map[string]struct{}, len(p.rows))
	for _, row := range p.rows {
		distinct[strings.Join(row, "\x1f")] = struct{}{}
	}
	return len(distinct), nil
}

// ResultMessage returns the plugin message.
func (p *PluginInstance) ResultMessage(ctx context.Context) (string, error) {
	if err := p.fetch(ctx); err != nil {
		return "", err
	}
	return p.message, nil
}

// Verify interface compliance.
var _ Instance = (*PluginInstance)(nil)
