package guardrails

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Each check is a pure function over the final SQL string and the
// request context. Checks share no state and are order-insensitive.

func pass(check string, severity Severity) SafetyCheckResult {
	return SafetyCheckResult{Check: check, Passed: true, Severity: severity, Details: "ok"}
}

func fail(check string, severity Severity, code, details string) SafetyCheckResult {
	return SafetyCheckResult{Check: check, Passed: false, Severity: severity, Details: details, ViolationCode: code}
}

var (
	multiStatementPattern = regexp.MustCompile(`(?i);\s*(drop|delete|update|insert|alter|truncate|create|grant|revoke)\b`)
	execPattern           = regexp.MustCompile(`(?i)\b(exec|execute)\b|\bxp_\w+`)
	tautologyPattern      = regexp.MustCompile(`(?i)\bor\s+'?1'?\s*=\s*'?1'?`)
	isoDateLiteral        = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	limitPattern          = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)
	unionPattern          = regexp.MustCompile(`(?i)\bunion\b`)
	selectPattern         = regexp.MustCompile(`(?i)\bselect\b`)

	tableRefPattern = regexp.MustCompile(`(?i)\b(?:from|join)\s+("?[a-zA-Z_][\w".]*"?(?:\s*,\s*"?[a-zA-Z_][\w".]*"?)*)`)
	ctePattern      = regexp.MustCompile(`(?i)(?:\bwith\s+|\)\s*,\s*)([a-z_]\w*)\s+as\s*\(`)
	joinPattern     = regexp.MustCompile(`(?i)\bjoin\s+("?[a-zA-Z_][\w".]*"?)`)

	dangerousFunctions = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpg_sleep\b`),
		regexp.MustCompile(`(?i)\bpg_read_file\b`),
		regexp.MustCompile(`(?i)\bpg_write_file\b`),
		regexp.MustCompile(`(?i)\blo_import\b`),
		regexp.MustCompile(`(?i)\blo_export\b`),
		regexp.MustCompile(`(?i)\bdblink\w*\b`),
		regexp.MustCompile(`(?i)\bcopy\b`),
		regexp.MustCompile(`(?i)\bsystem\b`),
		regexp.MustCompile(`(?i)\bexec\b`),
	}

	exfiltrationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\binto\s+outfile\b`),
		regexp.MustCompile(`(?i)\binto\s+dumpfile\b`),
		regexp.MustCompile(`(?i)\bload_file\s*\(`),
		regexp.MustCompile(`(?i)\bcopy\b[^;]*\bto\b`),
		regexp.MustCompile(`(?i)\bpg_read_file\s*\(`),
		regexp.MustCompile(`(?i)\blo_export\s*\(`),
	}

	// Column-name patterns that must never appear in generated SQL,
	// matched as whole words so compound names like email_channel stay
	// legal. Compiled once at init; the check runs on every request.
	piiColumnNames = []string{
		"email", "phone", "phone_number", "mobile", "ssn", "social_security",
		"dob", "date_of_birth", "birth_date", "first_name", "last_name",
		"full_name", "surname", "ip_address", "credit_card", "card_number",
		"iban", "passport", "national_id", "tax_id", "salary", "home_address",
	}
	piiColumnRegexps = compileColumnPatterns(piiColumnNames)
)

func compileColumnPatterns(names []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(names))
	for i, name := range names {
		compiled[i] = regexp.MustCompile(`\b` + name + `\b`)
	}
	return compiled
}

// deniedColumnCache memoizes the word-boundary pattern per denied
// column. Template denied-column lists are tiny and fixed, so the
// cache stays bounded by the catalog.
var deniedColumnCache sync.Map

func deniedColumnRegexp(col string) *regexp.Regexp {
	key := strings.ToLower(col)
	if re, ok := deniedColumnCache.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `\b`)
	deniedColumnCache.Store(key, re)
	return re
}

// checkInjectionPatterns rejects classic injection shapes: stacked
// destructive statements, EXEC/xp_ procedures, OR-1=1 tautologies,
// surviving comments, and a trailing semicolon.
func checkInjectionPatterns(sql string, _ Context) SafetyCheckResult {
	const name = "injection_pattern"
	if multiStatementPattern.MatchString(sql) {
		return fail(name, SeverityCritical, CodeMultiStatement, "SQL contains a chained destructive statement after a semicolon")
	}
	if execPattern.MatchString(sql) {
		return fail(name, SeverityCritical, CodeExecPattern, "SQL contains an EXEC or extended procedure call")
	}
	if tautologyPattern.MatchString(sql) {
		return fail(name, SeverityCritical, CodeTautology, "SQL contains an always-true OR predicate")
	}
	if strings.Contains(sql, "--") || strings.Contains(sql, "/*") || strings.Contains(sql, "*/") {
		return fail(name, SeverityCritical, CodeResidualComment, "SQL contains a comment marker")
	}
	if strings.HasSuffix(strings.TrimSpace(sql), ";") {
		return fail(name, SeverityCritical, CodeTrailingSemicolon, "SQL ends with a semicolon")
	}
	return pass(name, SeverityCritical)
}

// checkTableWhitelist rejects any FROM/JOIN target outside the
// allow-list (context tables plus template joins). CTE names defined
// by the statement itself are legal targets.
func checkTableWhitelist(sql string, ctx Context) SafetyCheckResult {
	const name = "table_whitelist"

	allowed := make(map[string]bool)
	for _, t := range ctx.AllowedTables {
		allowed[strings.ToLower(t)] = true
	}
	for _, t := range ctx.AllowedJoins {
		allowed[strings.ToLower(t)] = true
	}
	for _, m := range ctePattern.FindAllStringSubmatch(sql, -1) {
		allowed[strings.ToLower(m[1])] = true
	}

	for _, table := range extractTableRefs(sql) {
		if !allowed[table] {
			return fail(name, SeverityCritical, CodeTableNotAllowed, fmt.Sprintf("table %q is not in the allow-list", table))
		}
	}
	return pass(name, SeverityCritical)
}

// extractTableRefs returns the lowercased FROM/JOIN targets of the
// statement, tolerating quoted identifiers, schema prefixes, and
// comma-separated table lists.
func extractTableRefs(sql string) []string {
	var refs []string
	for _, m := range tableRefPattern.FindAllStringSubmatch(sql, -1) {
		for _, part := range strings.Split(m[1], ",") {
			name := strings.ToLower(strings.Trim(strings.TrimSpace(part), `"`))
			if name == "" || name == "select" {
				continue
			}
			// Keep only the relation name when schema-qualified.
			if idx := strings.LastIndex(name, "."); idx != -1 {
				name = name[idx+1:]
			}
			refs = append(refs, name)
		}
	}
	return refs
}

// checkPIIColumns rejects SQL mentioning any denylisted column name as
// a whole word, plus the template's own denied columns.
func checkPIIColumns(sql string, ctx Context) SafetyCheckResult {
	const name = "pii_column"
	lower := strings.ToLower(sql)

	for i, re := range piiColumnRegexps {
		if re.MatchString(lower) {
			return fail(name, SeverityCritical, CodePIIColumn, fmt.Sprintf("SQL references denylisted column pattern %q", piiColumnNames[i]))
		}
	}
	for _, col := range ctx.DeniedColumns {
		if deniedColumnRegexp(col).MatchString(lower) {
			return fail(name, SeverityCritical, CodeDeniedColumn, fmt.Sprintf("SQL references template-denied column %q", col))
		}
	}
	return pass(name, SeverityCritical)
}

// checkTimeWindow rejects SQL whose literal date span exceeds 730 days.
func checkTimeWindow(sql string, _ Context) SafetyCheckResult {
	const name = "time_window_limit"
	const maxDays = 730

	literals := isoDateLiteral.FindAllString(sql, -1)
	if len(literals) < 2 {
		return pass(name, SeverityMedium)
	}

	var earliest, latest time.Time
	seen := false
	for _, lit := range literals {
		d, err := time.Parse("2006-01-02", lit)
		if err != nil {
			continue
		}
		if !seen || d.Before(earliest) {
			earliest = d
		}
		if !seen || d.After(latest) {
			latest = d
		}
		seen = true
	}
	if !seen {
		return pass(name, SeverityMedium)
	}

	if days := int(latest.Sub(earliest).Hours() / 24); days > maxDays {
		return fail(name, SeverityMedium, CodeTimeWindow, fmt.Sprintf("literal date span of %d days exceeds the %d-day cap", days, maxDays))
	}
	return pass(name, SeverityMedium)
}

// checkTenantIsolation requires the exact company_id predicate for the
// requesting tenant, with no OR token adjacent that could widen its
// scope.
func checkTenantIsolation(sql string, ctx Context) SafetyCheckResult {
	const name = "tenant_isolation"
	if !ctx.RequireTenantFilter {
		return pass(name, SeverityCritical)
	}
	if ctx.CompanyID == "" {
		return fail(name, SeverityCritical, CodeTenantMissing, "tenant filter required but no company id in context")
	}

	predicate := fmt.Sprintf("company_id = '%s'", ctx.CompanyID)
	lower := strings.ToLower(sql)
	idx := strings.Index(lower, strings.ToLower(predicate))
	if idx == -1 {
		return fail(name, SeverityCritical, CodeTenantMissing, "rendered SQL lacks the exact tenant predicate")
	}

	for idx != -1 {
		before := strings.TrimSpace(lower[:idx])
		after := strings.TrimSpace(lower[idx+len(predicate):])
		if strings.HasSuffix(before, " or") || strings.HasSuffix(before, "(or") || strings.HasPrefix(after, "or ") || strings.HasPrefix(after, "or)") {
			return fail(name, SeverityCritical, CodeTenantWidened, "an OR adjacent to the tenant predicate could widen its scope")
		}
		next := strings.Index(lower[idx+1:], strings.ToLower(predicate))
		if next == -1 {
			break
		}
		idx = idx + 1 + next
	}
	return pass(name, SeverityCritical)
}

// checkJoinSafety rejects JOIN targets outside the context allow-list.
func checkJoinSafety(sql string, ctx Context) SafetyCheckResult {
	const name = "join_safety"

	allowed := make(map[string]bool)
	for _, t := range ctx.AllowedJoins {
		allowed[strings.ToLower(t)] = true
	}

	for _, m := range joinPattern.FindAllStringSubmatch(sql, -1) {
		name2 := strings.ToLower(strings.Trim(m[1], `"`))
		if idx := strings.LastIndex(name2, "."); idx != -1 {
			name2 = name2[idx+1:]
		}
		if !allowed[name2] {
			return fail(name, SeverityHigh, CodeJoinNotAllowed, fmt.Sprintf("join target %q is not in the allowed joins", name2))
		}
	}
	return pass(name, SeverityHigh)
}

// checkFunctionWhitelist rejects dangerous server-side functions.
func checkFunctionWhitelist(sql string, _ Context) SafetyCheckResult {
	const name = "function_whitelist"
	for _, p := range dangerousFunctions {
		if p.MatchString(sql) {
			return fail(name, SeverityCritical, CodeDangerousFunction, fmt.Sprintf("SQL matches dangerous function pattern %s", p.String()))
		}
	}
	return pass(name, SeverityCritical)
}

// checkRowLimit requires a LIMIT clause at or under the global cap.
func checkRowLimit(sql string, _ Context) SafetyCheckResult {
	const name = "row_limit"
	const maxRows = 10000

	m := limitPattern.FindStringSubmatch(sql)
	if m == nil {
		return fail(name, SeverityMedium, CodeLimitMissing, "SQL has no LIMIT clause")
	}
	limit, err := strconv.Atoi(m[1])
	if err != nil || limit > maxRows {
		return fail(name, SeverityMedium, CodeLimitTooLarge, fmt.Sprintf("LIMIT %s exceeds the global cap of %d rows", m[1], maxRows))
	}
	return pass(name, SeverityMedium)
}

// checkNestedDepth rejects more than three levels of nested SELECTs.
func checkNestedDepth(sql string, _ Context) SafetyCheckResult {
	const name = "nested_depth"
	const maxDepth = 3

	if depth := len(selectPattern.FindAllString(sql, -1)) - 1; depth > maxDepth {
		return fail(name, SeverityMedium, CodeNestingTooDeep, fmt.Sprintf("query nests %d SELECTs, more than the %d allowed", depth, maxDepth))
	}
	return pass(name, SeverityMedium)
}

// checkUnion rejects any UNION keyword. No template in this domain
// needs one, so its presence is treated as an attack signal.
func checkUnion(sql string, _ Context) SafetyCheckResult {
	const name = "union_rejection"
	if unionPattern.MatchString(sql) {
		return fail(name, SeverityHigh, CodeUnionPresent, "SQL contains a UNION keyword")
	}
	return pass(name, SeverityHigh)
}

// checkComments rejects comment markers that survived rendering.
func checkComments(sql string, _ Context) SafetyCheckResult {
	const name = "comment_stripping"
	if strings.Contains(sql, "--") || strings.Contains(sql, "/*") || strings.Contains(sql, "*/") {
		return fail(name, SeverityMedium, CodeCommentPresent, "a SQL comment survived into the final query text")
	}
	return pass(name, SeverityMedium)
}

// checkExfiltration rejects file-write and file-read exfiltration shapes.
func checkExfiltration(sql string, _ Context) SafetyCheckResult {
	const name = "exfiltration_pattern"
	for _, p := range exfiltrationPatterns {
		if p.MatchString(sql) {
			return fail(name, SeverityCritical, CodeExfiltration, fmt.Sprintf("SQL matches exfiltration pattern %s", p.String()))
		}
	}
	return pass(name, SeverityCritical)
}
