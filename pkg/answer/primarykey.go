package answer

import (
	"fmt"
	"strings"
	"time"

	"github.com/EuPathDB/WSF/pkg/dbms"
)

// keySeparator joins key values; it does not occur in identifiers.
const keySeparator = "\x1f"

// PrimaryKeyValue identifies a record by the values of its primary-key
// columns, in declaration order. Two values are equal when their columns
// and values are equal, whatever the driver types they were read from.
type PrimaryKeyValue struct {
	Columns []string
	Values  []string
}

// NewPrimaryKeyValue pairs columns with values.
func NewPrimaryKeyValue(columns []string, values ...any) (PrimaryKeyValue, error) {
	if len(columns) != len(values) {
		return PrimaryKeyValue{}, fmt.Errorf("primary key has %d columns but %d values", len(columns), len(values))
	}
	pk := PrimaryKeyValue{Columns: columns, Values: make([]string, len(values))}
	for i, v := range values {
		pk.Values[i] = stringValue(v)
	}
	return pk, nil
}

// primaryKeyFromCursor reads the key columns of the current row.
func primaryKeyFromCursor(c dbms.Cursor, columns []string) (PrimaryKeyValue, error) {
	pk := PrimaryKeyValue{Columns: columns, Values: make([]string, len(columns))}
	for i, col := range columns {
		v, err := c.Get(col)
		if err != nil {
			return PrimaryKeyValue{}, fmt.Errorf("reading primary key column %s: %w", col, err)
		}
		pk.Values[i] = stringValue(v)
	}
	return pk, nil
}

// Key returns the structural map key.
func (pk PrimaryKeyValue) Key() string {
	return strings.Join(pk.Values, keySeparator)
}

// Get returns the value of column.
func (pk PrimaryKeyValue) Get(column string) (string, bool) {
	for i, c := range pk.Columns {
		if strings.EqualFold(c, column) {
			return pk.Values[i], true
		}
	}
	return "", false
}

// Equal reports structural equality.
func (pk PrimaryKeyValue) Equal(other PrimaryKeyValue) bool {
	if len(pk.Columns) != len(other.Columns) {
		return false
	}
	for i := range pk.Columns {
		if !strings.EqualFold(pk.Columns[i], other.Columns[i]) || pk.Values[i] != other.Values[i] {
			return false
		}
	}
	return true
}

// Map returns the key as column → value.
func (pk PrimaryKeyValue) Map() map[string]string {
	out := make(map[string]string, len(pk.Columns))
	for i, c := range pk.Columns {
		out[c] = pk.Values[i]
	}
	return out
}

// String renders "col = value, ...".
func (pk PrimaryKeyValue) String() string {
	parts := make([]string, len(pk.Columns))
	for i, c := range pk.Columns {
		parts[i] = c + " = " + pk.Values[i]
	}
	return strings.Join(parts, ", ")
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
