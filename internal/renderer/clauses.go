package renderer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/impactlens/nlq-engine/internal/catalog"
	"github.com/impactlens/nlq-engine/internal/errors"
)

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// BuildGroupByClause resolves the requested grouping columns against
// the template's allow-list. With no request, the template's default
// (its first allowed column) is used.
func BuildGroupByClause(tpl *catalog.MetricTemplate, requested []string) (string, error) {
	if len(requested) == 0 {
		if len(tpl.AllowedGroupBy) == 0 {
			return "", nil
		}
		return tpl.AllowedGroupBy[0], nil
	}

	if len(tpl.AllowedGroupBy) == 0 {
		return "", errors.New(errors.ErrCodeDisallowedGroupBy, "Template does not support grouping").
			WithDetails(fmt.Sprintf("Template '%s' declares no groupable columns", tpl.ID))
	}

	columns := make([]string, 0, len(requested))
	for _, col := range requested {
		if !tpl.AllowsGroupBy(col) {
			return "", errors.New(errors.ErrCodeDisallowedGroupBy, "Grouping column not allowed by template").
				WithDetails(fmt.Sprintf("Column %q is not in the template's allowed group-by set", col)).
				WithMetadata("column", col)
		}
		columns = append(columns, col)
	}
	return strings.Join(columns, ", "), nil
}

// BuildFilterClause builds the "AND key = 'value'" chain for the
// requested filters. Keys must be declared by the template; values are
// enum-checked where the template declares an enum and quote-escaped
// otherwise. Keys are emitted in sorted order so rendering stays
// deterministic.
func BuildFilterClause(tpl *catalog.MetricTemplate, filters map[string]string) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		allowed, ok := tpl.FilterValues(key)
		if !ok {
			return "", errors.New(errors.ErrCodeDisallowedFilter, "Filter key not allowed by template").
				WithDetails(fmt.Sprintf("Filter %q is not declared by template '%s'", key, tpl.ID)).
				WithMetadata("filter", key)
		}
		if !columnPattern.MatchString(key) {
			return "", errors.New(errors.ErrCodeDisallowedFilter, "Filter key is not a valid column name").
				WithMetadata("filter", key)
		}

		value := filters[key]
		if len(allowed) > 0 {
			member := false
			for _, v := range allowed {
				if v == value {
					member = true
					break
				}
			}
			if !member {
				return "", errors.New(errors.ErrCodeDisallowedFilter, "Filter value not in template allow-list").
					WithDetails(fmt.Sprintf("Value %q is not permitted for filter %q", value, key)).
					WithMetadata("filter", key)
			}
		} else {
			if ContainsCommentMarker(value) {
				return "", errors.New(errors.ErrCodeDisallowedFilter, "Filter value contains a SQL comment marker").
					WithDetails(fmt.Sprintf("Value for filter %q may not contain '--', '#', or '/*'", key)).
					WithMetadata("filter", key)
			}
			value = strings.ReplaceAll(value, "'", "''")
		}

		sb.WriteString(fmt.Sprintf("AND %s = '%s' ", key, value))
	}

	return strings.TrimSpace(sb.String()), nil
}
