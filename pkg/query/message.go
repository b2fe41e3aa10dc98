package query

import (
	"strconv"
	"strings"

	"github.com/EuPathDB/WSF/pkg/wdkerr"
)

// ParseProjectCounts parses a federated result message of the form
// "project:count,project:count". Any malformed pair, duplicate project or
// negative count is a model configuration error; a partially usable message
// is never accepted.
func ParseProjectCounts(message string) (map[string]int, error) {
	counts := map[string]int{}
	for _, pair := range strings.Split(message, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			return nil, wdkerr.ModelConfiguration("result message %q has an empty project count", message)
		}
		project, count, ok := strings.Cut(pair, ":")
		project = strings.TrimSpace(project)
		if !ok || project == "" {
			return nil, wdkerr.ModelConfiguration("result message %q: %q is not a project:count pair", message, pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n < 0 {
			return nil, wdkerr.ModelConfiguration("result message %q: invalid count for project %s", message, project)
		}
		if _, dup := counts[project]; dup {
			return nil, wdkerr.ModelConfiguration("result message %q lists project %s twice", message, project)
		}
		counts[project] = n
	}
	return counts, nil
}

// TotalCount sums the counts of a federated result message.
func TotalCount(message string) (int, error) {
	counts, err := ParseProjectCounts(message)
	if err != nil {
		return 0, err
	}
	var total int
	for _, n := range counts {
		total += n
	}
	return total, nil
}
