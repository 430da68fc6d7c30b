package catalog

// builtinTemplates is the versioned source list the catalog is built
// from at process start. Adding a query to the platform means adding a
// template here and shipping a release; there is no runtime path.
func builtinTemplates() []*MetricTemplate {
	return []*MetricTemplate{
		{
			ID:          "sroi_ratio",
			Name:        "SROI Ratio",
			Description: "Social return on investment ratio across campaigns",
			Category:    "impact",
			Tags:        []string{"sroi", "headline"},
			SQLTemplate: `
SELECT c.campaign_name,
       SUM(o.social_value) AS total_social_value,
       SUM(o.investment_amount) AS total_investment,
       ROUND(SUM(o.social_value) / NULLIF(SUM(o.investment_amount), 0), 2) AS sroi_ratio
FROM sroi_outcomes o
JOIN campaigns c ON c.id = o.campaign_id
WHERE o.company_id = '{{company_id}}'
  AND o.measured_at BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY c.campaign_name
ORDER BY sroi_ratio DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			AllowedGroupBy:       []string{"campaign_name"},
			AllowedFilters:       map[string][]string{"outcome_category": {"social", "environmental", "economic"}},
			MaxTimeWindowDays:    365,
			RequiresTenantFilter: true,
			AllowedJoins:         []string{"campaigns"},
			ExpectedTables:       []string{"sroi_outcomes", "campaigns"},
			EstimatedComplexity:  ComplexityMedium,
			MaxResultRows:        500,
			DefaultLimit:         100,
			CacheTTLSeconds:      900,
		},
		{
			ID:          "cohort_sroi_benchmark",
			Name:        "Cohort SROI Benchmark",
			Description: "Company SROI against its industry cohort; cohort aggregates are k-anonymous (k>=7)",
			Category:    "impact",
			Tags:        []string{"sroi", "benchmark"},
			SQLTemplate: `
WITH own AS (
    SELECT ROUND(SUM(social_value) / NULLIF(SUM(investment_amount), 0), 2) AS own_ratio
    FROM sroi_outcomes
    WHERE company_id = '{{company_id}}'
      AND measured_at BETWEEN '{{start_date}}' AND '{{end_date}}'
),
cohort AS (
    SELECT cohort_key,
           ROUND(AVG(period_ratio), 2) AS cohort_avg_ratio,
           COUNT(DISTINCT company_id) AS sample_size
    FROM cohort_sroi_periods
    WHERE cohort_type = '{{cohort_type}}'
      AND period_start >= '{{start_date}}'
      AND period_end <= '{{end_date}}'
    GROUP BY cohort_key
    HAVING COUNT(DISTINCT company_id) >= 7
)
SELECT own.own_ratio, cohort.cohort_key, cohort.cohort_avg_ratio, cohort.sample_size
FROM own, cohort
ORDER BY cohort.cohort_avg_ratio DESC
LIMIT {{limit}}`,
			CHQLTemplate: `
SELECT cohort_key,
       round(avg(period_ratio), 2) AS cohort_avg_ratio,
       uniqExact(company_id) AS sample_size
FROM cohort_sroi_periods
WHERE cohort_type = '{{cohort_type}}'
  AND period_start >= toDate('{{start_date}}')
  AND period_end <= toDate('{{end_date}}')
  AND cohort_key IN (
      SELECT cohort_key FROM company_cohorts WHERE company_id = '{{company_id}}'
  )
GROUP BY cohort_key
HAVING uniqExact(company_id) >= 7
ORDER BY cohort_avg_ratio DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			AllowedGroupBy:       []string{"cohort_key"},
			AllowedFilters:       map[string][]string{"cohort_type": {"industry", "region", "company_size"}},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			AllowedJoins:         []string{"company_cohorts"},
			ExpectedTables:       []string{"sroi_outcomes", "cohort_sroi_periods"},
			CHQLExpectedTables:   []string{"cohort_sroi_periods", "company_cohorts"},
			DeniedColumns:        []string{"company_name"},
			EstimatedComplexity:  ComplexityHigh,
			MaxResultRows:        200,
			DefaultLimit:         50,
			CacheTTLSeconds:      3600,
		},
		{
			ID:          "campaign_engagement",
			Name:        "Campaign Engagement",
			Description: "Participation and session counts per campaign",
			Category:    "engagement",
			Tags:        []string{"campaigns"},
			SQLTemplate: `
SELECT {{group_by}},
       SUM(m.participant_count) AS participants,
       SUM(m.session_count) AS sessions,
       ROUND(AVG(m.completion_rate), 2) AS avg_completion_rate
FROM campaign_metrics m
JOIN campaigns c ON c.id = m.campaign_id
WHERE m.company_id = '{{company_id}}'
  AND m.metric_date BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY {{group_by}}
ORDER BY participants DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast7Days, RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeCustom},
			AllowedGroupBy:       []string{"c.campaign_name", "m.channel"},
			AllowedFilters:       map[string][]string{"channel": {"web", "mobile_app", "email_channel", "event"}, "campaign_status": {"active", "completed", "archived"}},
			MaxTimeWindowDays:    365,
			RequiresTenantFilter: true,
			AllowedJoins:         []string{"campaigns"},
			ExpectedTables:       []string{"campaign_metrics", "campaigns"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        1000,
			DefaultLimit:         100,
			CacheTTLSeconds:      300,
		},
		{
			ID:          "donation_totals",
			Name:        "Donation Totals",
			Description: "Total donated amounts grouped by campaign or channel",
			Category:    "giving",
			Tags:        []string{"donations"},
			SQLTemplate: `
SELECT {{group_by}},
       COUNT(*) AS donation_count,
       SUM(amount) AS total_amount,
       ROUND(AVG(amount), 2) AS avg_amount
FROM donations
WHERE company_id = '{{company_id}}'
  AND donated_at BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY {{group_by}}
ORDER BY total_amount DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast7Days, RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			AllowedGroupBy:       []string{"campaign_id", "channel", "currency"},
			AllowedFilters:       map[string][]string{"channel": {"payroll", "one_off", "matched"}, "currency": {"USD", "EUR", "GBP"}},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"donations"},
			DeniedColumns:        []string{"donor_reference"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        1000,
			DefaultLimit:         100,
			CacheTTLSeconds:      300,
		},
		{
			ID:          "donation_trend",
			Name:        "Donation Trend",
			Description: "Monthly donation volume over the selected window",
			Category:    "giving",
			Tags:        []string{"donations", "trend"},
			SQLTemplate: `
SELECT DATE_TRUNC('month', donated_at) AS month,
       COUNT(*) AS donation_count,
       SUM(amount) AS total_amount
FROM donations
WHERE company_id = '{{company_id}}'
  AND donated_at BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY DATE_TRUNC('month', donated_at)
ORDER BY month
LIMIT {{limit}}`,
			CHQLTemplate: `
SELECT toStartOfMonth(donated_at) AS month,
       count() AS donation_count,
       sum(amount) AS total_amount
FROM donations
WHERE company_id = '{{company_id}}'
  AND donated_at BETWEEN toDate('{{start_date}}') AND toDate('{{end_date}}')
  {{filter_clause}}
GROUP BY month
ORDER BY month
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			AllowedFilters:       map[string][]string{"channel": {"payroll", "one_off", "matched"}},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"donations"},
			EstimatedComplexity:  ComplexityMedium,
			MaxResultRows:        100,
			DefaultLimit:         36,
			CacheTTLSeconds:      900,
		},
		{
			ID:          "volunteer_hours_summary",
			Name:        "Volunteer Hours Summary",
			Description: "Volunteering hours by campaign or activity type",
			Category:    "volunteering",
			Tags:        []string{"volunteering"},
			SQLTemplate: `
SELECT {{group_by}},
       COUNT(*) AS session_count,
       SUM(hours) AS total_hours,
       ROUND(AVG(hours), 2) AS avg_hours_per_session
FROM volunteer_sessions
WHERE company_id = '{{company_id}}'
  AND session_date BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY {{group_by}}
ORDER BY total_hours DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast7Days, RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			AllowedGroupBy:       []string{"campaign_id", "activity_type"},
			AllowedFilters:       map[string][]string{"activity_type": {"environmental", "education", "community", "skills_based"}},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"volunteer_sessions"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        1000,
			DefaultLimit:         100,
			CacheTTLSeconds:      300,
		},
		{
			ID:          "volunteer_participation_rate",
			Name:        "Volunteer Participation Rate",
			Description: "Share of the workforce that volunteered in the window",
			Category:    "volunteering",
			Tags:        []string{"volunteering", "workforce"},
			SQLTemplate: `
SELECT w.reporting_period,
       w.headcount,
       COUNT(DISTINCT v.participant_token) AS active_volunteers,
       ROUND(COUNT(DISTINCT v.participant_token) * 100.0 / NULLIF(w.headcount, 0), 2) AS participation_pct
FROM volunteer_sessions v
JOIN workforce_stats w ON w.company_id = v.company_id
WHERE v.company_id = '{{company_id}}'
  AND v.session_date BETWEEN '{{start_date}}' AND '{{end_date}}'
GROUP BY w.reporting_period, w.headcount
ORDER BY w.reporting_period DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			AllowedJoins:         []string{"workforce_stats"},
			ExpectedTables:       []string{"volunteer_sessions", "workforce_stats"},
			EstimatedComplexity:  ComplexityMedium,
			MaxResultRows:        100,
			DefaultLimit:         20,
			CacheTTLSeconds:      1800,
		},
		{
			ID:          "carbon_emissions_summary",
			Name:        "Carbon Emissions Summary",
			Description: "Emissions totals by scope for the selected window",
			Category:    "environment",
			Tags:        []string{"carbon", "emissions"},
			SQLTemplate: `
SELECT {{group_by}},
       SUM(co2e_tonnes) AS total_co2e_tonnes,
       ROUND(AVG(co2e_tonnes), 3) AS avg_co2e_tonnes
FROM emissions
WHERE company_id = '{{company_id}}'
  AND recorded_at BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY {{group_by}}
ORDER BY total_co2e_tonnes DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			AllowedGroupBy:       []string{"scope", "source_category", "site_id"},
			AllowedFilters:       map[string][]string{"scope": {"scope_1", "scope_2", "scope_3"}},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"emissions"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        1000,
			DefaultLimit:         100,
			CacheTTLSeconds:      1800,
		},
		{
			ID:          "emissions_trend",
			Name:        "Emissions Trend",
			Description: "Monthly CO2e trend per scope",
			Category:    "environment",
			Tags:        []string{"carbon", "trend"},
			SQLTemplate: `
SELECT DATE_TRUNC('month', recorded_at) AS month,
       scope,
       SUM(co2e_tonnes) AS total_co2e_tonnes
FROM emissions
WHERE company_id = '{{company_id}}'
  AND recorded_at BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY DATE_TRUNC('month', recorded_at), scope
ORDER BY month, scope
LIMIT {{limit}}`,
			CHQLTemplate: `
SELECT toStartOfMonth(recorded_at) AS month,
       scope,
       sum(co2e_tonnes) AS total_co2e_tonnes
FROM emissions
WHERE company_id = '{{company_id}}'
  AND recorded_at BETWEEN toDate('{{start_date}}') AND toDate('{{end_date}}')
  {{filter_clause}}
GROUP BY month, scope
ORDER BY month, scope
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			AllowedFilters:       map[string][]string{"scope": {"scope_1", "scope_2", "scope_3"}},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"emissions"},
			EstimatedComplexity:  ComplexityMedium,
			MaxResultRows:        200,
			DefaultLimit:         108,
			CacheTTLSeconds:      1800,
		},
		{
			ID:          "esg_score_trend",
			Name:        "ESG Score Trend",
			Description: "Composite ESG score over time",
			Category:    "esg",
			Tags:        []string{"esg", "trend"},
			SQLTemplate: `
SELECT scored_at,
       composite_score,
       environmental_score,
       social_score,
       governance_score
FROM esg_scores
WHERE company_id = '{{company_id}}'
  AND scored_at BETWEEN '{{start_date}}' AND '{{end_date}}'
ORDER BY scored_at
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"esg_scores"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        400,
			DefaultLimit:         100,
			CacheTTLSeconds:      3600,
		},
		{
			ID:          "esg_score_breakdown",
			Name:        "ESG Score Breakdown",
			Description: "Latest pillar-level ESG score detail",
			Category:    "esg",
			Tags:        []string{"esg"},
			SQLTemplate: `
SELECT pillar,
       indicator,
       score,
       weight,
       ROUND(score * weight, 2) AS weighted_score
FROM esg_indicator_scores
WHERE company_id = '{{company_id}}'
  AND scored_at BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
ORDER BY weighted_score DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeCustom},
			AllowedFilters:       map[string][]string{"pillar": {"environmental", "social", "governance"}},
			MaxTimeWindowDays:    365,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"esg_indicator_scores"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        500,
			DefaultLimit:         100,
			CacheTTLSeconds:      3600,
		},
		{
			ID:          "campaign_roi",
			Name:        "Campaign ROI",
			Description: "Cost versus raised amounts per campaign",
			Category:    "giving",
			Tags:        []string{"campaigns", "finance"},
			SQLTemplate: `
SELECT c.campaign_name,
       SUM(k.cost_amount) AS total_cost,
       SUM(d.amount) AS total_raised,
       ROUND(SUM(d.amount) / NULLIF(SUM(k.cost_amount), 0), 2) AS roi_ratio
FROM campaigns c
JOIN campaign_costs k ON k.campaign_id = c.id
JOIN donations d ON d.campaign_id = c.id
WHERE c.company_id = '{{company_id}}'
  AND d.donated_at BETWEEN '{{start_date}}' AND '{{end_date}}'
GROUP BY c.campaign_name
ORDER BY roi_ratio DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			AllowedJoins:         []string{"campaign_costs", "donations"},
			ExpectedTables:       []string{"campaigns", "campaign_costs", "donations"},
			EstimatedComplexity:  ComplexityHigh,
			MaxResultRows:        500,
			DefaultLimit:         50,
			CacheTTLSeconds:      1800,
		},
		{
			ID:          "beneficiary_reach",
			Name:        "Beneficiary Reach",
			Description: "Aggregated count of beneficiaries reached per program",
			Category:    "impact",
			Tags:        []string{"beneficiaries"},
			SQLTemplate: `
SELECT {{group_by}},
       SUM(beneficiary_count) AS total_beneficiaries,
       COUNT(DISTINCT program_id) AS program_count
FROM beneficiary_stats
WHERE company_id = '{{company_id}}'
  AND reported_at BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY {{group_by}}
ORDER BY total_beneficiaries DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			AllowedGroupBy:       []string{"program_id", "region_code"},
			AllowedFilters:       map[string][]string{"region_code": {}},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"beneficiary_stats"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        1000,
			DefaultLimit:         100,
			CacheTTLSeconds:      900,
		},
		{
			ID:          "grant_disbursements",
			Name:        "Grant Disbursements",
			Description: "Grant amounts disbursed by program and status",
			Category:    "giving",
			Tags:        []string{"grants"},
			SQLTemplate: `
SELECT {{group_by}},
       COUNT(*) AS grant_count,
       SUM(disbursed_amount) AS total_disbursed
FROM grants
WHERE company_id = '{{company_id}}'
  AND disbursed_at BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY {{group_by}}
ORDER BY total_disbursed DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			AllowedGroupBy:       []string{"program_id", "grant_status"},
			AllowedFilters:       map[string][]string{"grant_status": {"pending", "disbursed", "closed"}},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"grants"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        1000,
			DefaultLimit:         100,
			CacheTTLSeconds:      900,
		},
		{
			ID:          "energy_usage_summary",
			Name:        "Energy Usage Summary",
			Description: "Energy consumption by site and source",
			Category:    "environment",
			Tags:        []string{"energy"},
			SQLTemplate: `
SELECT {{group_by}},
       SUM(kwh) AS total_kwh,
       SUM(renewable_kwh) AS renewable_kwh,
       ROUND(SUM(renewable_kwh) * 100.0 / NULLIF(SUM(kwh), 0), 2) AS renewable_pct
FROM energy_usage
WHERE company_id = '{{company_id}}'
  AND usage_date BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY {{group_by}}
ORDER BY total_kwh DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			AllowedGroupBy:       []string{"site_id", "energy_source"},
			AllowedFilters:       map[string][]string{"energy_source": {"grid", "solar", "wind", "diesel"}},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"energy_usage"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        1000,
			DefaultLimit:         100,
			CacheTTLSeconds:      1800,
		},
		{
			ID:          "waste_diversion_rate",
			Name:        "Waste Diversion Rate",
			Description: "Share of waste diverted from landfill per site",
			Category:    "environment",
			Tags:        []string{"waste"},
			SQLTemplate: `
SELECT site_id,
       SUM(diverted_kg) AS diverted_kg,
       SUM(total_kg) AS total_kg,
       ROUND(SUM(diverted_kg) * 100.0 / NULLIF(SUM(total_kg), 0), 2) AS diversion_pct
FROM waste_metrics
WHERE company_id = '{{company_id}}'
  AND recorded_at BETWEEN '{{start_date}}' AND '{{end_date}}'
GROUP BY site_id
ORDER BY diversion_pct DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"waste_metrics"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        500,
			DefaultLimit:         100,
			CacheTTLSeconds:      1800,
		},
		{
			ID:          "diversity_index",
			Name:        "Diversity Index",
			Description: "Aggregated workforce diversity indices per reporting period",
			Category:    "esg",
			Tags:        []string{"social", "workforce"},
			SQLTemplate: `
SELECT reporting_period,
       diversity_index,
       inclusion_score,
       pay_equity_ratio
FROM diversity_metrics
WHERE company_id = '{{company_id}}'
  AND period_end BETWEEN '{{start_date}}' AND '{{end_date}}'
ORDER BY reporting_period DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"diversity_metrics"},
			DeniedColumns:        []string{"gender", "ethnicity"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        100,
			DefaultLimit:         20,
			CacheTTLSeconds:      3600,
		},
		{
			ID:          "survey_sentiment_summary",
			Name:        "Survey Sentiment Summary",
			Description: "Aggregated survey sentiment per campaign",
			Category:    "engagement",
			Tags:        []string{"surveys"},
			SQLTemplate: `
SELECT {{group_by}},
       SUM(response_count) AS responses,
       ROUND(AVG(avg_sentiment), 3) AS avg_sentiment,
       ROUND(AVG(nps_score), 1) AS avg_nps
FROM survey_aggregates
WHERE company_id = '{{company_id}}'
  AND survey_closed_at BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY {{group_by}}
ORDER BY responses DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeCustom},
			AllowedGroupBy:       []string{"campaign_id", "survey_type"},
			AllowedFilters:       map[string][]string{"survey_type": {"pulse", "post_event", "annual"}},
			MaxTimeWindowDays:    365,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"survey_aggregates"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        500,
			DefaultLimit:         100,
			CacheTTLSeconds:      900,
		},
		{
			ID:          "top_campaigns_by_impact",
			Name:        "Top Campaigns by Impact",
			Description: "Campaigns ranked by delivered social value",
			Category:    "impact",
			Tags:        []string{"campaigns", "sroi"},
			SQLTemplate: `
SELECT c.campaign_name,
       c.campaign_status,
       SUM(o.social_value) AS total_social_value,
       COUNT(DISTINCT o.outcome_id) AS outcome_count
FROM campaigns c
JOIN sroi_outcomes o ON o.campaign_id = c.id
WHERE c.company_id = '{{company_id}}'
  AND o.measured_at BETWEEN '{{start_date}}' AND '{{end_date}}'
  {{filter_clause}}
GROUP BY c.campaign_name, c.campaign_status
ORDER BY total_social_value DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeLastYear, RangeCustom},
			AllowedFilters:       map[string][]string{"campaign_status": {"active", "completed"}},
			MaxTimeWindowDays:    730,
			RequiresTenantFilter: true,
			AllowedJoins:         []string{"sroi_outcomes"},
			ExpectedTables:       []string{"campaigns", "sroi_outcomes"},
			EstimatedComplexity:  ComplexityMedium,
			MaxResultRows:        200,
			DefaultLimit:         25,
			CacheTTLSeconds:      900,
		},
		{
			ID:          "employee_participation_trend",
			Name:        "Employee Participation Trend",
			Description: "Daily participation counts across all programs",
			Category:    "engagement",
			Tags:        []string{"workforce", "trend"},
			SQLTemplate: `
SELECT activity_date,
       SUM(participant_count) AS participants,
       SUM(new_participant_count) AS new_participants
FROM participation_daily
WHERE company_id = '{{company_id}}'
  AND activity_date BETWEEN '{{start_date}}' AND '{{end_date}}'
GROUP BY activity_date
ORDER BY activity_date
LIMIT {{limit}}`,
			CHQLTemplate: `
SELECT activity_date,
       sum(participant_count) AS participants,
       sum(new_participant_count) AS new_participants
FROM participation_daily
WHERE company_id = '{{company_id}}'
  AND activity_date BETWEEN toDate('{{start_date}}') AND toDate('{{end_date}}')
GROUP BY activity_date
ORDER BY activity_date
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast7Days, RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeCustom},
			MaxTimeWindowDays:    365,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"participation_daily"},
			EstimatedComplexity:  ComplexityMedium,
			MaxResultRows:        400,
			DefaultLimit:         90,
			CacheTTLSeconds:      300,
		},
		{
			ID:          "matched_giving_utilization",
			Name:        "Matched Giving Utilization",
			Description: "Match budget usage across matched-giving programs",
			Category:    "giving",
			Tags:        []string{"donations", "matching"},
			SQLTemplate: `
SELECT program_id,
       SUM(matched_amount) AS total_matched,
       MAX(match_budget) AS match_budget,
       ROUND(SUM(matched_amount) * 100.0 / NULLIF(MAX(match_budget), 0), 2) AS utilization_pct
FROM match_transactions
WHERE company_id = '{{company_id}}'
  AND matched_at BETWEEN '{{start_date}}' AND '{{end_date}}'
GROUP BY program_id
ORDER BY utilization_pct DESC
LIMIT {{limit}}`,
			AllowedTimeRanges:    []string{RangeLast30Days, RangeLast90Days, RangeLastQuarter, RangeYearToDate, RangeCustom},
			MaxTimeWindowDays:    365,
			RequiresTenantFilter: true,
			ExpectedTables:       []string{"match_transactions"},
			EstimatedComplexity:  ComplexityLow,
			MaxResultRows:        500,
			DefaultLimit:         100,
			CacheTTLSeconds:      600,
		},
	}
}
