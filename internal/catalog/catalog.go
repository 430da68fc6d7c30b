package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/impactlens/nlq-engine/internal/errors"
)

// Catalog is a read-only registry of metric templates keyed by id.
// It is built once at process start; no write operations exist at
// runtime, which is what makes "only pre-approved queries can ever be
// generated" a structural property rather than a convention.
type Catalog struct {
	templates map[string]*MetricTemplate
	ids       []string
}

// New builds a catalog from a fixed template list. It fails on
// duplicate ids or templates that violate their own declarations, so a
// malformed catalog can never reach serving.
func New(templates []*MetricTemplate) (*Catalog, error) {
	c := &Catalog{
		templates: make(map[string]*MetricTemplate, len(templates)),
		ids:       make([]string, 0, len(templates)),
	}

	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template with empty id")
		}
		if _, exists := c.templates[t.ID]; exists {
			return nil, fmt.Errorf("duplicate template id: %s", t.ID)
		}
		if err := verifyTemplate(t); err != nil {
			return nil, fmt.Errorf("template %s: %w", t.ID, err)
		}
		c.templates[t.ID] = t
		c.ids = append(c.ids, t.ID)
	}

	sort.Strings(c.ids)
	return c, nil
}

// MustBuiltin returns the catalog of built-in templates, panicking on
// a malformed definition. Called once during startup.
func MustBuiltin() *Catalog {
	c, err := New(builtinTemplates())
	if err != nil {
		panic(fmt.Sprintf("builtin template catalog is invalid: %v", err))
	}
	return c
}

// GetTemplate looks up a template by id, failing closed on unknown ids.
func (c *Catalog) GetTemplate(id string) (*MetricTemplate, error) {
	t, ok := c.templates[id]
	if !ok {
		return nil, errors.NewTemplateNotFoundError(id)
	}
	return t, nil
}

// GetTemplatesByCategory returns all templates in a category, sorted by id.
func (c *Catalog) GetTemplatesByCategory(category string) []*MetricTemplate {
	var result []*MetricTemplate
	for _, id := range c.ids {
		if c.templates[id].Category == category {
			result = append(result, c.templates[id])
		}
	}
	return result
}

// GetTemplatesByTag returns all templates carrying a tag, sorted by id.
func (c *Catalog) GetTemplatesByTag(tag string) []*MetricTemplate {
	var result []*MetricTemplate
	for _, id := range c.ids {
		for _, t := range c.templates[id].Tags {
			if t == tag {
				result = append(result, c.templates[id])
				break
			}
		}
	}
	return result
}

// AllTemplateIDs returns the sorted ids of every registered template.
func (c *Catalog) AllTemplateIDs() []string {
	ids := make([]string, len(c.ids))
	copy(ids, c.ids)
	return ids
}

// Len returns the number of registered templates.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// verifyTemplate checks a template's internal consistency at
// construction time: declared constraints must be coherent with the
// template text, so a bad definition fails the process start instead
// of a request.
func verifyTemplate(t *MetricTemplate) error {
	if t.SQLTemplate == "" {
		return fmt.Errorf("missing SQL template text")
	}
	if t.MaxResultRows <= 0 || t.MaxResultRows > GlobalMaxResultRows {
		return fmt.Errorf("max_result_rows %d outside (0, %d]", t.MaxResultRows, GlobalMaxResultRows)
	}
	if t.DefaultLimit <= 0 || t.DefaultLimit > t.MaxResultRows {
		return fmt.Errorf("default_limit %d outside (0, %d]", t.DefaultLimit, t.MaxResultRows)
	}
	if t.MaxTimeWindowDays <= 0 {
		return fmt.Errorf("max_time_window_days must be positive")
	}
	if t.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds must not be negative")
	}
	if len(t.ExpectedTables) == 0 {
		return fmt.Errorf("no expected tables declared")
	}
	if t.RequiresTenantFilter && !strings.Contains(t.SQLTemplate, "company_id = '{{company_id}}'") {
		return fmt.Errorf("requires tenant filter but SQL lacks the company_id predicate")
	}
	if t.RequiresTenantFilter && t.HasCHQL() && !strings.Contains(t.CHQLTemplate, "company_id = '{{company_id}}'") {
		return fmt.Errorf("requires tenant filter but CHQL lacks the company_id predicate")
	}
	if !strings.Contains(t.SQLTemplate, "LIMIT {{limit}}") {
		return fmt.Errorf("SQL lacks a parameterized LIMIT clause")
	}
	switch t.EstimatedComplexity {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
	default:
		return fmt.Errorf("unknown complexity %q", t.EstimatedComplexity)
	}
	return nil
}
