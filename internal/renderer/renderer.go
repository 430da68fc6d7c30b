// Package renderer turns (template, parameters) into final SQL text.
// Every parameter value passes a strict type check before it can reach
// SQL; there is no best-effort substitution path.
package renderer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/impactlens/nlq-engine/internal/catalog"
	"github.com/impactlens/nlq-engine/internal/errors"
)

var (
	placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)
	isoDatePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	blockComment       = regexp.MustCompile(`/\*.*?\*/`)
	lineComment        = regexp.MustCompile(`--[^\n]*`)
	hashComment        = regexp.MustCompile(`#[^\n]*`)
	whitespaceRun      = regexp.MustCompile(`\s+`)
)

// SanitizeValue applies per-parameter type discipline and returns the
// value safe for substitution. UUIDs and dates must match their strict
// patterns, enum parameters must be members of the template's declared
// allow-list, and free strings get embedded single quotes doubled.
func SanitizeValue(value, paramName string, tpl *catalog.MetricTemplate) (string, error) {
	switch paramName {
	case "company_id":
		parsed, err := uuid.Parse(value)
		if err != nil || parsed.String() != strings.ToLower(value) {
			return "", errors.NewRenderError(paramName, "value is not a canonical UUID")
		}
		return parsed.String(), nil

	case "start_date", "end_date":
		if !isoDatePattern.MatchString(value) {
			return "", errors.NewRenderError(paramName, "value is not a YYYY-MM-DD date")
		}
		return value, nil

	case "limit":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return "", errors.NewRenderError(paramName, "value is not a positive integer")
		}
		return strconv.Itoa(n), nil
	}

	// Template-specific enum parameters share names with filter keys.
	if allowed, ok := tpl.FilterValues(paramName); ok && len(allowed) > 0 {
		for _, v := range allowed {
			if v == value {
				return value, nil
			}
		}
		return "", errors.NewRenderError(paramName, fmt.Sprintf("value %q is not in the template's allow-list", value))
	}

	// Free strings: comment markers are refused outright, and embedded
	// single quotes are doubled so a raw apostrophe can never terminate
	// the literal.
	if ContainsCommentMarker(value) {
		return "", errors.NewRenderError(paramName, "value contains a SQL comment marker")
	}
	return strings.ReplaceAll(value, "'", "''"), nil
}

// ContainsCommentMarker reports whether a free-string value carries a
// SQL comment opener. Values are refused rather than stripped: a
// stripped value would change meaning silently.
func ContainsCommentMarker(value string) bool {
	return strings.Contains(value, "--") ||
		strings.Contains(value, "#") ||
		strings.Contains(value, "/*")
}

// RenderTemplate strips comments from the template text, substitutes
// {{name}} placeholders from params, and normalizes whitespace. Any
// residual placeholder means a missing parameter and fails the render.
// Comment stripping runs on the template text only, never on text
// carrying substituted values: a comment marker smuggled in through a
// parameter must survive into the output where guardrail check 11
// rejects it, instead of silently swallowing the SQL behind it.
func RenderTemplate(text string, params map[string]string) (string, error) {
	text = StripComments(text)

	rendered := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := params[name]; ok {
			return value
		}
		return match
	})

	rendered = NormalizeWhitespace(rendered)

	if idx := strings.Index(rendered, "{{"); idx != -1 {
		name := "unknown"
		if m := placeholderPattern.FindStringSubmatch(rendered[idx:]); m != nil {
			name = m[1]
		}
		return "", errors.NewRenderError(name, "placeholder left unsubstituted in rendered SQL")
	}

	return rendered, nil
}

// StripComments removes SQL block and line comments the template text
// itself might carry. Defense in depth, not a sole control: guardrail
// check 11 independently rejects any comment that survives.
func StripComments(sql string) string {
	sql = blockComment.ReplaceAllString(sql, " ")
	sql = lineComment.ReplaceAllString(sql, " ")
	sql = hashComment.ReplaceAllString(sql, " ")
	return sql
}

// NormalizeWhitespace collapses whitespace runs to single spaces and
// trims the result, yielding one canonical line of SQL.
func NormalizeWhitespace(sql string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(sql, " "))
}

// ValidateRenderedSQL confirms every table the template's own design
// references appears in the output. This is a template-integrity
// check, not a user-input check: a failure means the catalog entry is
// broken.
func ValidateRenderedSQL(sql string, expectedTables []string) error {
	lower := strings.ToLower(sql)
	for _, table := range expectedTables {
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(table)) + `\b`)
		if !pattern.MatchString(lower) {
			return errors.NewSchemaValidationError(fmt.Sprintf("expected table %q is not referenced by the rendered SQL", table))
		}
	}
	return nil
}
