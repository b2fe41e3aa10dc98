package query

import (
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

// identity is the canonical form hashed into an instance checksum.
// encoding/json writes map keys sorted, which makes the hash independent of
// parameter order.
type identity struct {
	Query    string            `json:"query"`
	Params   map[string]string `json:"params,omitempty"`
	Operator string            `json:"operator,omitempty"`
	Operands []string          `json:"operands,omitempty"`
}

func (id identity) sum() string {
	data, _ := json.Marshal(id) //nolint:errchkjson // strings only
	digest := blake2b.Sum256(data)
	return hex.EncodeToString(digest[:])
}

func normalize(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[norm.NFC.String(k)] = norm.NFC.String(v)
	}
	return out
}

// Checksum returns the checksum of a query bound to values. Values are
// NFC-normalized first, so canonically equivalent input hashes equally.
func Checksum(queryFullName string, values map[string]string) string {
	return identity{Query: queryFullName, Params: normalize(values)}.sum()
}

func booleanChecksum(op Operator, left, right string) string {
	return identity{
		Query:    "boolean",
		Operator: string(op),
		Operands: []string{left, right},
	}.sum()
}
