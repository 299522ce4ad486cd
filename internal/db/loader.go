package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kefis/kefis/internal/domain"
)

// Loader writes normalized fact records to Postgres, resolving
// Country/Entity/FiscalPeriod foreign keys on the way in and upserting
// idempotently so re-ingesting an unchanged document is a no-op.
// Grounded on the teacher's pipeline.go SaveOpportunity: the same
// find-or-create-then-ON-CONFLICT-DO-UPDATE idiom, generalized from
// one wide opportunities table to Kenya's per-record-kind fact tables.
type Loader struct {
	pool *pgxpool.Pool
}

func NewLoader(pool *pgxpool.Pool) *Loader {
	return &Loader{pool: pool}
}

// EnsureCountry returns Kenya's country row, creating it on first use.
func (l *Loader) EnsureCountry(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	err := l.pool.QueryRow(ctx, `
		INSERT INTO countries (iso3, name) VALUES ('KEN', 'Kenya')
		ON CONFLICT (iso3) DO UPDATE SET iso3 = EXCLUDED.iso3
		RETURNING id
	`).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ensure country: %w", err)
	}
	return id, nil
}

// EnsureEntity finds or creates an entity by its canonical key,
// falling back to an "Unknown Entity" agency row when name is empty
// (mirrors the Python original's ensure_entity_exists fallback).
func (l *Loader) EnsureEntity(ctx context.Context, countryID uuid.UUID, name string, kind domain.EntityKind) (uuid.UUID, error) {
	if strings.TrimSpace(name) == "" {
		name = "Unknown Entity"
		kind = domain.EntityAgency
	}
	canonicalKey := strings.ToLower(strings.TrimSpace(name))

	var id uuid.UUID
	err := l.pool.QueryRow(ctx, `
		INSERT INTO entities (country_id, kind, name, canonical_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (country_id, canonical_key) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = NOW()
		RETURNING id
	`, countryID, string(kind), name, canonicalKey).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ensure entity %q: %w", name, err)
	}
	return id, nil
}

// EnsureFiscalPeriod finds or creates a fiscal-year row.
func (l *Loader) EnsureFiscalPeriod(ctx context.Context, countryID uuid.UUID, startYear, quarter int) (uuid.UUID, error) {
	label := fmt.Sprintf("FY%d/%02d", startYear, (startYear+1)%100)
	if quarter > 0 {
		label = fmt.Sprintf("%s Q%d", label, quarter)
	}

	var id uuid.UUID
	err := l.pool.QueryRow(ctx, `
		INSERT INTO fiscal_periods (country_id, start_year, quarter, label)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (country_id, start_year, quarter) DO UPDATE SET label = EXCLUDED.label
		RETURNING id
	`, countryID, startYear, quarter, label).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ensure fiscal period %d/%d: %w", startYear, quarter, err)
	}
	return id, nil
}

// SaveSourceDocument upserts the document row by its MD5 fingerprint.
func (l *Loader) SaveSourceDocument(ctx context.Context, doc domain.SourceDocument) (uuid.UUID, error) {
	var id uuid.UUID
	err := l.pool.QueryRow(ctx, `
		INSERT INTO source_documents (source_key, url, canonical_url, md5, content_type, title, doc_type, fiscal_year, blob_path, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, 0), $9, $10)
		ON CONFLICT (md5) DO UPDATE SET
			url = EXCLUDED.url,
			fetched_at = EXCLUDED.fetched_at
		RETURNING id
	`, doc.SourceKey, doc.URL, doc.CanonicalURL, doc.MD5, doc.ContentType, doc.Title, string(doc.DocType), doc.FiscalYear, doc.BlobPath, doc.FetchedAt).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save source document %s: %w", doc.URL, err)
	}
	return id, nil
}

// SaveExtraction records one extraction attempt's outcome.
func (l *Loader) SaveExtraction(ctx context.Context, e domain.Extraction) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO extractions (source_document_id, strategy, confidence, record_count, extracted_at, error)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
	`, e.SourceDocumentID, e.Strategy, e.Confidence, e.RecordCount, e.ExtractedAt, e.Error)
	return err
}

// SaveBudgetLine upserts one budget-line record, skipping rows that
// carry neither an approved nor actual amount.
func (l *Loader) SaveBudgetLine(ctx context.Context, countryID uuid.UUID, r domain.BudgetLineRecord) error {
	if r.ApprovedAmount == 0 && r.ActualSpend == 0 {
		return nil
	}
	entityID, err := l.EnsureEntity(ctx, countryID, r.EntityKey, domain.EntityCounty)
	if err != nil {
		return err
	}
	periodID, err := l.EnsureFiscalPeriod(ctx, countryID, r.FiscalYear, r.Quarter)
	if err != nil {
		return err
	}

	_, err = l.pool.Exec(ctx, `
		INSERT INTO budget_lines (entity_id, period_id, category, subcategory, vote, programme, approved_amount, revised_amount, actual_spend, currency, approved_amount_kes, actual_spend_kes, source_document_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (entity_id, period_id, category, subcategory) DO UPDATE SET
			approved_amount = COALESCE(NULLIF(EXCLUDED.approved_amount, 0), budget_lines.approved_amount),
			actual_spend = COALESCE(NULLIF(EXCLUDED.actual_spend, 0), budget_lines.actual_spend),
			approved_amount_kes = COALESCE(NULLIF(EXCLUDED.approved_amount_kes, 0), budget_lines.approved_amount_kes),
			actual_spend_kes = COALESCE(NULLIF(EXCLUDED.actual_spend_kes, 0), budget_lines.actual_spend_kes),
			currency = EXCLUDED.currency,
			source_document_id = EXCLUDED.source_document_id,
			updated_at = NOW()
	`, entityID, periodID, r.Category, r.Subcategory, r.Vote, r.Programme, r.ApprovedAmount, r.RevisedAmount, r.ActualSpend, r.Currency, r.ApprovedAmountKES, r.ActualSpendKES, r.SourceDocID)
	return err
}

// SaveAuditFinding upserts one audit finding, deduplicated per
// (entity, document, finding text) as in the Python original's
// _load_audit_finding_item.
func (l *Loader) SaveAuditFinding(ctx context.Context, countryID uuid.UUID, r domain.AuditFindingRecord) error {
	entityID, err := l.EnsureEntity(ctx, countryID, r.EntityKey, domain.EntityCounty)
	if err != nil {
		return err
	}
	var periodID *uuid.UUID
	if r.FiscalYear > 0 {
		id, err := l.EnsureFiscalPeriod(ctx, countryID, r.FiscalYear, 0)
		if err != nil {
			return err
		}
		periodID = &id
	}

	_, err = l.pool.Exec(ctx, `
		INSERT INTO audits (entity_id, period_id, finding_text, amount_kes, severity, category, recommended_action, source_document_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		ON CONFLICT (entity_id, source_document_id, finding_text) DO NOTHING
	`, entityID, periodID, r.FindingText, r.AmountKES, string(r.Severity), r.Category, r.RecommendedAction, r.SourceDocID)
	return err
}

// SavePopulationData, SaveGDPData, SaveEconomicIndicator,
// SavePovertyIndex follow the same ensure-then-upsert shape as
// SaveBudgetLine/SaveAuditFinding, trimmed to their narrower key sets.

func (l *Loader) SavePopulationData(ctx context.Context, countryID uuid.UUID, r domain.PopulationDataRecord) error {
	entityID, err := l.EnsureEntity(ctx, countryID, r.EntityKey, domain.EntityCounty)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO population_data (entity_id, year, population, households, source_document_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_id, year) DO UPDATE SET
			population = COALESCE(NULLIF(EXCLUDED.population, 0), population_data.population),
			source_document_id = EXCLUDED.source_document_id
	`, entityID, r.Year, r.Population, r.Households, r.SourceDocID)
	return err
}

// SaveGDPData resolves the entity (defaulting to "national" for a
// whole-economy figure) before upserting, per spec.md §8 scenario 3.
func (l *Loader) SaveGDPData(ctx context.Context, countryID uuid.UUID, r domain.GDPDataRecord) error {
	entityKey := r.EntityKey
	if entityKey == "" {
		entityKey = "national"
	}
	entityID, err := l.EnsureEntity(ctx, countryID, entityKey, domain.EntityCounty)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO gdp_data (entity_id, year, quarter, gdp_kes_million, growth_percent, sector, source_document_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entity_id, year, quarter) DO UPDATE SET
			gdp_kes_million = COALESCE(NULLIF(EXCLUDED.gdp_kes_million, 0), gdp_data.gdp_kes_million),
			source_document_id = EXCLUDED.source_document_id
	`, entityID, r.Year, r.Quarter, r.GDPKESMillion, r.GrowthPercent, r.Sector, r.SourceDocID)
	return err
}

func (l *Loader) SaveEconomicIndicator(ctx context.Context, r domain.EconomicIndicatorRecord) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO economic_indicators (year, month, indicator, value, unit, source_document_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (year, month, indicator) DO UPDATE SET
			value = EXCLUDED.value,
			source_document_id = EXCLUDED.source_document_id
	`, r.Year, r.Month, r.Indicator, r.Value, r.Unit, r.SourceDocID)
	return err
}

func (l *Loader) SavePovertyIndex(ctx context.Context, countryID uuid.UUID, r domain.PovertyIndexRecord) error {
	entityID, err := l.EnsureEntity(ctx, countryID, r.EntityKey, domain.EntityCounty)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO poverty_index (entity_id, year, poverty_rate_pct, methodology_note, source_document_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_id, year) DO UPDATE SET
			poverty_rate_pct = EXCLUDED.poverty_rate_pct,
			source_document_id = EXCLUDED.source_document_id
	`, entityID, r.Year, r.PovertyRatePct, r.MethodologyNote, r.SourceDocID)
	return err
}

// SaveLoan upserts one public-debt loan record.
func (l *Loader) SaveLoan(ctx context.Context, countryID uuid.UUID, r domain.LoanRecord) error {
	entityID, err := l.EnsureEntity(ctx, countryID, r.EntityKey, domain.EntityNational)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO loans (entity_id, fiscal_year, issue_date, lender, loan_type, currency, principal, outstanding, principal_kes, outstanding_kes, interest_rate, maturity_year, source_document_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (entity_id, lender, issue_date) DO UPDATE SET
			outstanding = COALESCE(NULLIF(EXCLUDED.outstanding, 0), loans.outstanding),
			outstanding_kes = COALESCE(NULLIF(EXCLUDED.outstanding_kes, 0), loans.outstanding_kes),
			source_document_id = EXCLUDED.source_document_id
	`, entityID, r.FiscalYear, r.IssueDate, r.Lender, string(r.LoanType), r.Currency, r.Principal, r.Outstanding, r.PrincipalKES, r.OutstandingKES, r.InterestRate, r.MaturityYear, r.SourceDocID)
	return err
}

// SaveDebtTimeline upserts one point-in-time total-debt snapshot.
func (l *Loader) SaveDebtTimeline(ctx context.Context, r domain.DebtTimelineRecord) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO debt_timeline (date, total_debt_kes, domestic_kes, external_kes, source_document_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE SET
			total_debt_kes = COALESCE(NULLIF(EXCLUDED.total_debt_kes, 0), debt_timeline.total_debt_kes),
			source_document_id = EXCLUDED.source_document_id
	`, r.Date, r.TotalDebtKES, r.DomesticKES, r.ExternalKES, r.SourceDocID)
	return err
}

// SaveFiscalSummary upserts one fiscal-year revenue/expense/deficit
// rollup.
func (l *Loader) SaveFiscalSummary(ctx context.Context, r domain.FiscalSummaryRecord) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO fiscal_summary (fiscal_year, total_revenue_kes, total_expense_kes, deficit_kes, source_document_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fiscal_year) DO UPDATE SET
			total_revenue_kes = COALESCE(NULLIF(EXCLUDED.total_revenue_kes, 0), fiscal_summary.total_revenue_kes),
			total_expense_kes = COALESCE(NULLIF(EXCLUDED.total_expense_kes, 0), fiscal_summary.total_expense_kes),
			source_document_id = EXCLUDED.source_document_id
	`, r.FiscalYear, r.TotalRevenueKES, r.TotalExpenseKES, r.DeficitKES, r.SourceDocID)
	return err
}

// SaveRevenueBySource upserts one revenue-by-category line for a
// fiscal year (income tax, VAT, excise, customs, grants, ...).
func (l *Loader) SaveRevenueBySource(ctx context.Context, r domain.RevenueBySourceRecord) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO revenue_by_source (fiscal_year, source, amount_kes, source_document_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fiscal_year, source) DO UPDATE SET
			amount_kes = COALESCE(NULLIF(EXCLUDED.amount_kes, 0), revenue_by_source.amount_kes),
			source_document_id = EXCLUDED.source_document_id
	`, r.FiscalYear, r.Source, r.AmountKES, r.SourceDocID)
	return err
}

// StartIngestionJob inserts the running row a pipeline run tracks its
// own progress against.
func (l *Loader) StartIngestionJob(ctx context.Context, sourceKey, kind string) (uuid.UUID, error) {
	var id uuid.UUID
	err := l.pool.QueryRow(ctx, `
		INSERT INTO ingestion_jobs (source_key, kind, status)
		VALUES ($1, $2, 'running')
		RETURNING id
	`, sourceKey, kind).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("start ingestion job: %w", err)
	}
	return id, nil
}

// FinishIngestionJob closes out a job row with its final counters and
// status ("completed" or "failed"); errMsg is stored whenever it is
// non-empty, whatever the status, and NULL otherwise.
func (l *Loader) FinishIngestionJob(ctx context.Context, jobID uuid.UUID, status string, docsFound, docsFetched, recordsLoaded int, errMsg string) error {
	_, err := l.pool.Exec(ctx, `
		UPDATE ingestion_jobs
		SET finished_at = NOW(), status = $2, docs_found = $3, docs_fetched = $4, records_loaded = $5, error = NULLIF($6, '')
		WHERE id = $1
	`, jobID, status, docsFound, docsFetched, recordsLoaded, errMsg)
	if err != nil {
		return fmt.Errorf("finish ingestion job %s: %w", jobID, err)
	}
	return nil
}

// SaveRecord dispatches a domain.Record to its typed save method via
// an exhaustive type switch, the tagged-union loader dispatch
// described in SPEC_FULL.md §9.
func (l *Loader) SaveRecord(ctx context.Context, countryID uuid.UUID, rec domain.Record) error {
	switch r := rec.(type) {
	case domain.BudgetLineRecord:
		return l.SaveBudgetLine(ctx, countryID, r)
	case domain.AuditFindingRecord:
		return l.SaveAuditFinding(ctx, countryID, r)
	case domain.PopulationDataRecord:
		return l.SavePopulationData(ctx, countryID, r)
	case domain.GDPDataRecord:
		return l.SaveGDPData(ctx, countryID, r)
	case domain.EconomicIndicatorRecord:
		return l.SaveEconomicIndicator(ctx, r)
	case domain.PovertyIndexRecord:
		return l.SavePovertyIndex(ctx, countryID, r)
	case domain.LoanRecord:
		return l.SaveLoan(ctx, countryID, r)
	case domain.DebtTimelineRecord:
		return l.SaveDebtTimeline(ctx, r)
	case domain.FiscalSummaryRecord:
		return l.SaveFiscalSummary(ctx, r)
	case domain.RevenueBySourceRecord:
		return l.SaveRevenueBySource(ctx, r)
	default:
		panic(fmt.Sprintf("unhandled record kind: %T", rec))
	}
}
