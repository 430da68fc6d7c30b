// Package guardrails validates final rendered SQL text with twelve
// independent checks. The validator is all-or-nothing: failing any
// single check fails the whole validation, and no check can be skipped
// individually.
package guardrails

// Severity classifies how dangerous a violation is.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// Violation codes, one family per check.
const (
	CodeMultiStatement    = "INJ_001"
	CodeExecPattern       = "INJ_002"
	CodeTautology         = "INJ_003"
	CodeTrailingSemicolon = "INJ_004"
	CodeResidualComment   = "INJ_005"
	CodeTableNotAllowed   = "TBL_001"
	CodePIIColumn         = "PII_001"
	CodeDeniedColumn      = "PII_002"
	CodeTimeWindow        = "TIME_001"
	CodeTenantMissing     = "TNT_001"
	CodeTenantWidened     = "TNT_002"
	CodeJoinNotAllowed    = "JOIN_001"
	CodeDangerousFunction = "FUNC_001"
	CodeLimitMissing      = "LIMIT_001"
	CodeLimitTooLarge     = "LIMIT_002"
	CodeNestingTooDeep    = "NEST_001"
	CodeUnionPresent      = "UNION_001"
	CodeCommentPresent    = "CMT_001"
	CodeExfiltration      = "EXF_001"
)

// Context carries the request facts the checks need beyond the SQL
// text itself. All fields come from the template and the trusted
// request context, never from user-editable text.
type Context struct {
	CompanyID           string
	TemplateID          string
	RequireTenantFilter bool
	AllowedTables       []string
	AllowedJoins        []string
	DeniedColumns       []string
}

// SafetyCheckResult is the outcome of one guardrail check.
type SafetyCheckResult struct {
	Check         string   `json:"check"`
	Passed        bool     `json:"passed"`
	Severity      Severity `json:"severity"`
	Details       string   `json:"details"`
	ViolationCode string   `json:"violation_code,omitempty"`
}

// SafetyValidationResult aggregates all twelve check results. Passed
// is true iff every individual check passed.
type SafetyValidationResult struct {
	Passed          bool                `json:"passed"`
	Checks          []SafetyCheckResult `json:"checks"`
	Violations      []SafetyCheckResult `json:"violations"`
	OverallSeverity Severity            `json:"overall_severity"`
}

// ViolationCodes returns the codes of all failed checks.
func (r SafetyValidationResult) ViolationCodes() []string {
	codes := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		codes = append(codes, v.ViolationCode)
	}
	return codes
}
