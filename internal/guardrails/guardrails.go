package guardrails

type namedCheck struct {
	name string
	fn   func(sql string, ctx Context) SafetyCheckResult
}

// allChecks is the closed list of guardrail checks. The compile-time
// assertion below pins its length to twelve so a check cannot be
// silently dropped during a refactor.
var allChecks = [...]namedCheck{
	{"injection_pattern", checkInjectionPatterns},
	{"table_whitelist", checkTableWhitelist},
	{"pii_column", checkPIIColumns},
	{"time_window_limit", checkTimeWindow},
	{"tenant_isolation", checkTenantIsolation},
	{"join_safety", checkJoinSafety},
	{"function_whitelist", checkFunctionWhitelist},
	{"row_limit", checkRowLimit},
	{"nested_depth", checkNestedDepth},
	{"union_rejection", checkUnion},
	{"comment_stripping", checkComments},
	{"exfiltration_pattern", checkExfiltration},
}

var _ [12]namedCheck = allChecks

// Validate runs every guardrail check against the final SQL text and
// aggregates the results. Passed is the AND of all twelve checks;
// overall severity is the maximum severity among the failures.
func Validate(sql string, ctx Context) SafetyValidationResult {
	result := SafetyValidationResult{
		Passed:          true,
		Checks:          make([]SafetyCheckResult, 0, len(allChecks)),
		OverallSeverity: SeverityNone,
	}

	for _, check := range allChecks {
		outcome := check.fn(sql, ctx)
		result.Checks = append(result.Checks, outcome)
		if !outcome.Passed {
			result.Passed = false
			result.Violations = append(result.Violations, outcome)
			result.OverallSeverity = MaxSeverity(result.OverallSeverity, outcome.Severity)
		}
	}

	return result
}
