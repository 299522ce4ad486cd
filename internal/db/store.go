package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store serves the read-side query surface over the fact tables the
// Loader writes. Grounded on the teacher's ListOpportunities: the same
// dynamic WHERE-clause-plus-argIdx-counter idiom, one query builder per
// fact table instead of one wide opportunities table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EntitySummary describes one row from the entities table.
type EntitySummary struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	CreatedAt string     `json:"created_at"`
}

// ListEntitiesParams filters the entity directory.
type ListEntitiesParams struct {
	Kind   string
	Search string
	Limit  int
	Offset int
}

func (s *Store) ListEntities(ctx context.Context, params ListEntitiesParams) ([]EntitySummary, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.Kind != "" {
		where += fmt.Sprintf(" AND kind = $%d", argIdx)
		args = append(args, params.Kind)
		argIdx++
	}
	if params.Search != "" {
		where += fmt.Sprintf(" AND name ILIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, params.Search)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM entities "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

	limit := clampLimit(params.Limit)
	query := fmt.Sprintf(`
		SELECT id, name, kind, parent_id, created_at::text
		FROM entities %s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d
	`, where, argIdx, argIdx+1)
	args = append(args, limit, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	out := []EntitySummary{}
	for rows.Next() {
		var e EntitySummary
		if err := rows.Scan(&e.ID, &e.Name, &e.Kind, &e.ParentID, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// BudgetLineRow is one budget_lines record joined against its entity
// and fiscal period for display.
type BudgetLineRow struct {
	ID             uuid.UUID `json:"id"`
	EntityName     string    `json:"entity_name"`
	FiscalYear     int       `json:"fiscal_year"`
	Quarter        int       `json:"quarter"`
	Category       string    `json:"category"`
	Vote           string    `json:"vote"`
	Programme      string    `json:"programme"`
	ApprovedAmount float64   `json:"approved_amount"`
	RevisedAmount  float64   `json:"revised_amount"`
	ActualSpend    float64   `json:"actual_spend"`
	Currency       string    `json:"currency"`
}

// ListBudgetLinesParams filters the budget-line query. EntityID and
// FiscalYear of zero mean "no filter".
type ListBudgetLinesParams struct {
	EntityID   uuid.UUID
	FiscalYear int
	Category   string
	Limit      int
	Offset     int
}

func (s *Store) ListBudgetLines(ctx context.Context, params ListBudgetLinesParams) ([]BudgetLineRow, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.EntityID != uuid.Nil {
		where += fmt.Sprintf(" AND bl.entity_id = $%d", argIdx)
		args = append(args, params.EntityID)
		argIdx++
	}
	if params.FiscalYear > 0 {
		where += fmt.Sprintf(" AND fp.start_year = $%d", argIdx)
		args = append(args, params.FiscalYear)
		argIdx++
	}
	if params.Category != "" {
		where += fmt.Sprintf(" AND bl.category = $%d", argIdx)
		args = append(args, params.Category)
		argIdx++
	}

	countSQL := "SELECT COUNT(*) FROM budget_lines bl JOIN entities e ON e.id = bl.entity_id JOIN fiscal_periods fp ON fp.id = bl.period_id " + where
	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count budget lines: %w", err)
	}

	limit := clampLimit(params.Limit)
	query := fmt.Sprintf(`
		SELECT bl.id, e.name, fp.start_year, fp.quarter, COALESCE(bl.category, ''), COALESCE(bl.vote, ''),
			COALESCE(bl.programme, ''), COALESCE(bl.approved_amount, 0), COALESCE(bl.revised_amount, 0),
			COALESCE(bl.actual_spend, 0), bl.currency
		FROM budget_lines bl
		JOIN entities e ON e.id = bl.entity_id
		JOIN fiscal_periods fp ON fp.id = bl.period_id
		%s
		ORDER BY fp.start_year DESC, e.name ASC
		LIMIT $%d OFFSET $%d
	`, where, argIdx, argIdx+1)
	args = append(args, limit, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list budget lines: %w", err)
	}
	defer rows.Close()

	out := []BudgetLineRow{}
	for rows.Next() {
		var r BudgetLineRow
		if err := rows.Scan(&r.ID, &r.EntityName, &r.FiscalYear, &r.Quarter, &r.Category, &r.Vote,
			&r.Programme, &r.ApprovedAmount, &r.RevisedAmount, &r.ActualSpend, &r.Currency); err != nil {
			return nil, 0, fmt.Errorf("scan budget line: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// AuditRow is one audits record joined against its entity.
type AuditRow struct {
	ID          uuid.UUID `json:"id"`
	EntityName  string    `json:"entity_name"`
	FindingText string    `json:"finding_text"`
	AmountKES   float64   `json:"amount_kes"`
	Severity    string    `json:"severity"`
	Category    string    `json:"category"`
	RecommendedAction string `json:"recommended_action,omitempty"`
}

// ListAuditsParams filters the audit-findings query by entity, fiscal
// year and severity.
type ListAuditsParams struct {
	EntityID   uuid.UUID
	FiscalYear int
	Severity   string
	Limit      int
	Offset     int
}

func (s *Store) ListAudits(ctx context.Context, params ListAuditsParams) ([]AuditRow, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.EntityID != uuid.Nil {
		where += fmt.Sprintf(" AND a.entity_id = $%d", argIdx)
		args = append(args, params.EntityID)
		argIdx++
	}
	if params.FiscalYear > 0 {
		where += fmt.Sprintf(" AND fp.start_year = $%d", argIdx)
		args = append(args, params.FiscalYear)
		argIdx++
	}
	if params.Severity != "" {
		where += buildSeverityConstraint(argIdx)
		args = append(args, params.Severity)
		argIdx++
	}

	countSQL := "SELECT COUNT(*) FROM audits a JOIN entities e ON e.id = a.entity_id LEFT JOIN fiscal_periods fp ON fp.id = a.period_id " + where
	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audits: %w", err)
	}

	limit := clampLimit(params.Limit)
	query := fmt.Sprintf(`
		SELECT a.id, e.name, a.finding_text, COALESCE(a.amount_kes, 0), a.severity, COALESCE(a.category, ''), COALESCE(a.recommended_action, '')
		FROM audits a
		JOIN entities e ON e.id = a.entity_id
		LEFT JOIN fiscal_periods fp ON fp.id = a.period_id
		%s
		ORDER BY CASE a.severity WHEN 'critical' THEN 0 WHEN 'warning' THEN 1 ELSE 2 END, a.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argIdx, argIdx+1)
	args = append(args, limit, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	out := []AuditRow{}
	for rows.Next() {
		var r AuditRow
		if err := rows.Scan(&r.ID, &r.EntityName, &r.FindingText, &r.AmountKES, &r.Severity, &r.Category, &r.RecommendedAction); err != nil {
			return nil, 0, fmt.Errorf("scan audit: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// buildSeverityConstraint mirrors the teacher's buildOpenTabConstraint:
// a single named, independently testable clause fragment rather than
// inlining the same string at every call site.
func buildSeverityConstraint(argIdx int) string {
	return fmt.Sprintf(" AND a.severity = $%d", argIdx)
}

// IndicatorRow is one economic_indicators record.
type IndicatorRow struct {
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	Indicator string  `json:"indicator"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
}

func (s *Store) ListEconomicIndicators(ctx context.Context, indicator string, fromYear, toYear int) ([]IndicatorRow, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if indicator != "" {
		where += fmt.Sprintf(" AND indicator = $%d", argIdx)
		args = append(args, indicator)
		argIdx++
	}
	if fromYear > 0 {
		where += fmt.Sprintf(" AND year >= $%d", argIdx)
		args = append(args, fromYear)
		argIdx++
	}
	if toYear > 0 {
		where += fmt.Sprintf(" AND year <= $%d", argIdx)
		args = append(args, toYear)
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT year, month, indicator, COALESCE(value, 0), COALESCE(unit, '')
		FROM economic_indicators %s
		ORDER BY year ASC, month ASC
	`, where)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list economic indicators: %w", err)
	}
	defer rows.Close()

	out := []IndicatorRow{}
	for rows.Next() {
		var r IndicatorRow
		if err := rows.Scan(&r.Year, &r.Month, &r.Indicator, &r.Value, &r.Unit); err != nil {
			return nil, fmt.Errorf("scan indicator: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SeverityAggregation is a single facet count for the audit dashboard.
type SeverityAggregation struct {
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// GetAuditSeverityCounts powers the summary view: count of audit
// findings per severity level, across all entities.
func (s *Store) GetAuditSeverityCounts(ctx context.Context) ([]SeverityAggregation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT severity, COUNT(*) FROM audits GROUP BY severity ORDER BY
			CASE severity WHEN 'critical' THEN 0 WHEN 'warning' THEN 1 ELSE 2 END
	`)
	if err != nil {
		return nil, fmt.Errorf("audit severity counts: %w", err)
	}
	defer rows.Close()

	out := []SeverityAggregation{}
	for rows.Next() {
		var a SeverityAggregation
		if err := rows.Scan(&a.Severity, &a.Count); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// JobRow is one ingestion_jobs record, newest first, for the
// monitored-runner status surface.
type JobRow struct {
	ID            uuid.UUID `json:"id"`
	SourceKey     string    `json:"source_key"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	DocsFound     int       `json:"docs_found"`
	DocsFetched   int       `json:"docs_fetched"`
	RecordsLoaded int       `json:"records_loaded"`
	StartedAt     string    `json:"started_at"`
	Error         string    `json:"error,omitempty"`
}

func (s *Store) GetJobHistory(ctx context.Context, sourceKey string, limit int) ([]JobRow, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1
	if sourceKey != "" {
		where += fmt.Sprintf(" AND source_key = $%d", argIdx)
		args = append(args, sourceKey)
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT id, source_key, kind, status, docs_found, docs_fetched, records_loaded, started_at::text, COALESCE(error, '')
		FROM ingestion_jobs %s
		ORDER BY started_at DESC
		LIMIT $%d
	`, where, argIdx)
	args = append(args, clampLimit(limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("job history: %w", err)
	}
	defer rows.Close()

	out := []JobRow{}
	for rows.Next() {
		var j JobRow
		if err := rows.Scan(&j.ID, &j.SourceKey, &j.Kind, &j.Status, &j.DocsFound, &j.DocsFetched, &j.RecordsLoaded, &j.StartedAt, &j.Error); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// clampLimit applies the same default/ceiling the teacher used for
// pagination: a sane default when unset, a hard ceiling against
// accidental full-table scans.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
