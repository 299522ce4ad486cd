// Package domain holds the canonical data model for Kenya fiscal
// transparency records: countries, entities, fiscal periods, source
// documents and the fact records extracted from them.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind enumerates the government-entity variants the loader
// recognizes.
type EntityKind string

const (
	EntityNational     EntityKind = "national"
	EntityCounty       EntityKind = "county"
	EntityMinistry     EntityKind = "ministry"
	EntityAgency       EntityKind = "agency"
	EntityMunicipality EntityKind = "municipality"
)

// Country is the top-level scope most fact records hang off.
type Country struct {
	ID        uuid.UUID `json:"id"`
	ISO3      string    `json:"iso3"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Entity is a government body: a ministry, county, agency or municipality.
type Entity struct {
	ID           uuid.UUID  `json:"id"`
	CountryID    uuid.UUID  `json:"country_id"`
	Kind         EntityKind `json:"kind"`
	Name         string     `json:"name"`
	CanonicalKey string     `json:"canonical_key"` // lowercase, de-aliased lookup key
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FiscalPeriod is a financial year, e.g. FY2023/24, and optionally a
// quarter within it.
type FiscalPeriod struct {
	ID        uuid.UUID `json:"id"`
	CountryID uuid.UUID `json:"country_id"`
	StartYear int       `json:"start_year"` // the "2023" in FY2023/24
	Quarter   int       `json:"quarter"`    // 0 = full year
	Label     string    `json:"label"`      // "FY2023/24" or "FY2023/24 Q2"
}

// DocType classifies a source document by its title, per the ordered
// substring table in internal/ingest/classify.go. It drives which
// specific parser runs within a source's parser family, and is the
// same enum the original backend exposes to API consumers.
type DocType string

const (
	DocTypeBudget DocType = "budget"
	DocTypeAudit  DocType = "audit"
	DocTypeReport DocType = "report"
	DocTypeLoan   DocType = "loan"
	DocTypeOther  DocType = "other"
)

// SourceDocument is a fetched, fingerprinted artifact with provenance.
type SourceDocument struct {
	ID           uuid.UUID `json:"id"`
	SourceKey    string    `json:"source_key"` // treasury, cob, oag, knbs, opendata, cra
	URL          string    `json:"url"`
	CanonicalURL string    `json:"canonical_url"`
	MD5          string    `json:"md5"`
	ContentType  string    `json:"content_type"`
	Title        string    `json:"title,omitempty"` // from discovery; drives ClassifyDocType
	DocType      DocType   `json:"doc_type"`
	FetchedAt    time.Time `json:"fetched_at"`
	BlobPath     string    `json:"blob_path"`
	FiscalYear   int       `json:"fiscal_year,omitempty"` // best-effort, from URL/title
}

// Extraction records the outcome of running an extraction strategy
// over a SourceDocument, independent of what records it yielded.
type Extraction struct {
	ID               uuid.UUID `json:"id"`
	SourceDocumentID uuid.UUID `json:"source_document_id"`
	Strategy         string    `json:"strategy"` // text_table, html_table, tabular_guess
	Confidence       float64   `json:"confidence"`
	RecordCount      int       `json:"record_count"`
	ExtractedAt      time.Time `json:"extracted_at"`
	Error            string    `json:"error,omitempty"`
}

// Record is the tagged-union contract every fact-record variant
// implements. kind() is unexported so only this package can add
// variants, matching the teacher's closed-enum idiom used for
// Strategy in the original ingest package.
type Record interface {
	kind() string
}

// RecordKind returns the discriminator string for a Record, used by
// the loader's dispatch switch and by log fields.
func RecordKind(r Record) string { return r.kind() }

type BudgetLineRecord struct {
	EntityKey         string    `json:"entity_key"`
	FiscalYear        int       `json:"fiscal_year"`
	Quarter           int       `json:"quarter"`
	Category          string    `json:"category"`    // recurrent, development
	Subcategory       string    `json:"subcategory"`  // vote/programme-level breakdown within Category
	Vote              string    `json:"vote"`
	Programme         string    `json:"programme"`
	ApprovedAmount    float64   `json:"approved_amount"`     // native currency
	RevisedAmount     float64   `json:"revised_amount"`      // native currency
	ActualSpend       float64   `json:"actual_spend"`        // native currency
	Currency          string    `json:"currency"`            // as detected by NormalizeAmount
	ApprovedAmountKES float64   `json:"approved_amount_kes"` // base-currency projection
	ActualSpendKES    float64   `json:"actual_spend_kes"`
	SourceDocID       uuid.UUID `json:"source_doc_id"`
}

func (BudgetLineRecord) kind() string { return "budget_line" }

// LoanType enumerates the debt-category breakdown spec.md §3 lists for
// the public debt register: external vs domestic, by instrument.
type LoanType string

const (
	LoanExternalMultilateral LoanType = "external_multilateral"
	LoanExternalBilateral    LoanType = "external_bilateral"
	LoanExternalCommercial   LoanType = "external_commercial"
	LoanDomesticBonds        LoanType = "domestic_bonds"
	LoanDomesticBills        LoanType = "domestic_bills"
	LoanDomesticOverdraft    LoanType = "domestic_overdraft"
	LoanPendingBills         LoanType = "pending_bills"
	LoanCountyGuaranteed     LoanType = "county_guaranteed"
	LoanOther                LoanType = "other"
)

type LoanRecord struct {
	EntityKey      string    `json:"entity_key"`
	FiscalYear     int       `json:"fiscal_year"`
	IssueDate      time.Time `json:"issue_date"`
	Lender         string    `json:"lender"`
	LoanType       LoanType  `json:"loan_type"`
	Currency       string    `json:"currency"` // as detected by NormalizeAmount
	Principal      float64   `json:"principal"` // native currency
	Outstanding    float64   `json:"outstanding"` // native currency
	PrincipalKES   float64   `json:"principal_kes"`
	OutstandingKES float64   `json:"outstanding_kes"`
	InterestRate   float64   `json:"interest_rate"`
	MaturityYear   int       `json:"maturity_year"`
	SourceDocID    uuid.UUID `json:"source_doc_id"`
}

func (LoanRecord) kind() string { return "loan" }

// AuditSeverity classifies the financial impact of an audit finding.
type AuditSeverity string

const (
	AuditCritical AuditSeverity = "critical" // >= 50,000,000 KES
	AuditWarning  AuditSeverity = "warning"  // >= 5,000,000 KES
	AuditInfo     AuditSeverity = "info"
)

type AuditFindingRecord struct {
	EntityKey          string        `json:"entity_key"`
	FiscalYear         int           `json:"fiscal_year"`
	FindingText        string        `json:"finding_text"`
	AmountKES          float64       `json:"amount_kes"`
	Severity           AuditSeverity `json:"severity"`
	Category           string        `json:"category"` // misappropriation, irregular_procurement, pending_bills, ...
	RecommendedAction  string        `json:"recommended_action,omitempty"`
	SourceDocID        uuid.UUID     `json:"source_doc_id"`
}

func (AuditFindingRecord) kind() string { return "audit_finding" }

type PopulationDataRecord struct {
	EntityKey   string    `json:"entity_key"` // county or "national"
	Year        int       `json:"year"`
	Population  int64     `json:"population"`
	Households  int64     `json:"households"`
	SourceDocID uuid.UUID `json:"source_doc_id"`
}

func (PopulationDataRecord) kind() string { return "population_data" }

type GDPDataRecord struct {
	EntityKey     string    `json:"entity_key"` // county or "national"
	Year          int       `json:"year"`
	Quarter       int       `json:"quarter"`
	GDPKESMillion float64   `json:"gdp_kes_million"`
	GrowthPercent float64   `json:"growth_percent"`
	Sector        string    `json:"sector"` // "" = whole-economy figure
	SourceDocID   uuid.UUID `json:"source_doc_id"`
}

func (GDPDataRecord) kind() string { return "gdp_data" }

type EconomicIndicatorRecord struct {
	Year        int       `json:"year"`
	Month       int       `json:"month"` // 0 = annual figure
	Indicator   string    `json:"indicator"` // inflation, exchange_rate, interest_rate, ...
	Value       float64   `json:"value"`
	Unit        string    `json:"unit"`
	SourceDocID uuid.UUID `json:"source_doc_id"`
}

func (EconomicIndicatorRecord) kind() string { return "economic_indicator" }

type PovertyIndexRecord struct {
	EntityKey        string    `json:"entity_key"`
	Year             int       `json:"year"`
	PovertyRatePct   float64   `json:"poverty_rate_pct"`
	MethodologyNote  string    `json:"methodology_note"`
	SourceDocID      uuid.UUID `json:"source_doc_id"`
}

func (PovertyIndexRecord) kind() string { return "poverty_index" }

type DebtTimelineRecord struct {
	Date           time.Time `json:"date"`
	TotalDebtKES   float64   `json:"total_debt_kes"`
	DomesticKES    float64   `json:"domestic_kes"`
	ExternalKES    float64   `json:"external_kes"`
	SourceDocID    uuid.UUID `json:"source_doc_id"`
}

func (DebtTimelineRecord) kind() string { return "debt_timeline" }

type FiscalSummaryRecord struct {
	FiscalYear      int       `json:"fiscal_year"`
	TotalRevenueKES float64   `json:"total_revenue_kes"`
	TotalExpenseKES float64   `json:"total_expense_kes"`
	DeficitKES      float64   `json:"deficit_kes"`
	SourceDocID     uuid.UUID `json:"source_doc_id"`
}

func (FiscalSummaryRecord) kind() string { return "fiscal_summary" }

type RevenueBySourceRecord struct {
	FiscalYear  int       `json:"fiscal_year"`
	Source      string    `json:"source"` // income_tax, vat, excise, customs, grants, ...
	AmountKES   float64   `json:"amount_kes"`
	SourceDocID uuid.UUID `json:"source_doc_id"`
}

func (RevenueBySourceRecord) kind() string { return "revenue_by_source" }

// IngestionJob is a tracked run of the pipeline orchestrator or
// backfill runner against one source.
type IngestionJob struct {
	ID          uuid.UUID  `json:"id"`
	SourceKey   string     `json:"source_key"`
	Kind        string     `json:"kind"` // "etl" for Pipeline.IngestSource runs
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	DocsFound   int        `json:"docs_found"`
	DocsFetched int        `json:"docs_fetched"`
	RecordsLoaded int      `json:"records_loaded"`
	Status      string     `json:"status"` // running, completed, failed
	Error       string     `json:"error,omitempty"`
}
