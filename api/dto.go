/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts leave the API as float64 rounded to 2 decimals (payment.Round2).
  This is presentation only; everything behind the API is decimal.Decimal.
  Amounts in requests are converted with decimal.NewFromFloat.

VALIDATION:
  Request shapes carry go-playground/validator tags and are checked by
  decodeAndValidate before a handler touches them. Business rules (amount
  within balance, referral rate required) are enforced by the domain.

SEE ALSO:
  - handlers.go: Uses these types
  - errors.go: decodeAndValidate, error responses
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/crew-ledger/aggregate"
	"github.com/warp/crew-ledger/debts"
	"github.com/warp/crew-ledger/payment"
	"github.com/warp/crew-ledger/records"
)

// =============================================================================
// PEOPLE
// =============================================================================

type WorkerDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	ReferenceID *string `json:"reference_id,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// WorkerRequest creates or replaces a worker.
type WorkerRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name" validate:"required"`
	Phone       string  `json:"phone"`
	ReferenceID *string `json:"reference_id"`
}

type EmployerDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at,omitempty"`
}

type EmployerRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

// =============================================================================
// PROJECTS, SHIFTS, EVENTS
// =============================================================================

type ProjectDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Location   string  `json:"location"`
	StartDate  string  `json:"start_date"`
	Status     string  `json:"status"`
	EndDate    *string `json:"end_date,omitempty"`
	EmployerID *string `json:"employer_id,omitempty"`
}

type ProjectRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name" validate:"required"`
	Location   string  `json:"location"`
	StartDate  string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	Status     string  `json:"status" validate:"omitempty,oneof=active closed"`
	EndDate    *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	EmployerID *string `json:"employer_id"`
}

type IncomeEntryDTO struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Units       float64 `json:"units"`
	IsFixed     bool    `json:"is_fixed"`
	Value       float64 `json:"value"`
}

// IncomeEntryRequest adds income to a project. Units default to 1.
type IncomeEntryRequest struct {
	Description string   `json:"description"`
	Date        string   `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      float64  `json:"amount" validate:"gte=0"`
	Units       *float64 `json:"units" validate:"omitempty,gte=0"`
	IsFixed     bool     `json:"is_fixed"`
}

type ShiftDTO struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"project_id"`
	Name      string  `json:"name"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Hours     float64 `json:"hours"`
}

// ShiftRequest creates or replaces a shift. Without hours, they are derived
// from start and end time.
type ShiftRequest struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id" validate:"required"`
	Name      string   `json:"name" validate:"required"`
	Date      string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string   `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime   string   `json:"end_time" validate:"omitempty,datetime=15:04"`
	Hours     *float64 `json:"hours" validate:"omitempty,gte=0"`
}

type EventDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Location   string  `json:"location"`
	Date       string  `json:"date"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Hours      float64 `json:"hours"`
	Income     float64 `json:"income"`
	EmployerID *string `json:"employer_id,omitempty"`
}

type EventRequest struct {
	ID         string   `json:"id"`
	Name       string   `json:"name" validate:"required"`
	Location   string   `json:"location"`
	Date       string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string   `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime    string   `json:"end_time" validate:"omitempty,datetime=15:04"`
	Hours      *float64 `json:"hours" validate:"omitempty,gte=0"`
	Income     float64  `json:"income" validate:"gte=0"`
	EmployerID *string  `json:"employer_id"`
}

// =============================================================================
// ASSIGNMENTS AND DEBTS
// =============================================================================

// AssignmentDTO is a priced assignment. The display fields (names, date) are
// filled in debt lists.
type AssignmentDTO struct {
	ID                    string   `json:"id"`
	Kind                  string   `json:"kind"`
	ParentID              string   `json:"parent_id"`
	WorkerID              string   `json:"worker_id"`
	Hours                 float64  `json:"hours"`
	IsHourlyRate          bool     `json:"is_hourly_rate"`
	PayRate               float64  `json:"pay_rate"`
	ReferencePayRate      *float64 `json:"reference_pay_rate,omitempty"`
	IsReferenceHourlyRate bool     `json:"is_reference_hourly_rate"`

	IsPaid              bool    `json:"is_paid"`
	AmountPaid          float64 `json:"amount_paid"`
	TipAmount           float64 `json:"tip_amount"`
	ReferenceAmountPaid float64 `json:"reference_amount_paid"`
	ReferenceTipAmount  float64 `json:"reference_tip_amount"`

	WorkerPayment       float64 `json:"worker_payment"`
	ReferencePayment    float64 `json:"reference_payment"`
	TotalPayment        float64 `json:"total_payment"`
	NetPayment          float64 `json:"net_payment"`
	NetReferencePayment float64 `json:"net_reference_payment"`
	TotalNet            float64 `json:"total_net"`
	State               string  `json:"state"`

	WorkerName   string  `json:"worker_name,omitempty"`
	ReferrerID   *string `json:"referrer_id,omitempty"`
	ReferrerName string  `json:"referrer_name,omitempty"`
	ParentName   string  `json:"parent_name,omitempty"`
	ProjectName  string  `json:"project_name,omitempty"`
	Date         string  `json:"date,omitempty"`
}

// AssignmentRequest adds a worker to a shift or event, or edits the terms of
// an existing assignment (worker_id is ignored then). Rate flags default to
// hourly. The pay rate is always required, zero included. Hours apply to
// event assignments only and default to the event's.
type AssignmentRequest struct {
	WorkerID              string   `json:"worker_id"`
	IsHourlyRate          *bool    `json:"is_hourly_rate"`
	PayRate               *float64 `json:"pay_rate" validate:"required,gte=0"`
	ReferencePayRate      *float64 `json:"reference_pay_rate" validate:"omitempty,gte=0"`
	IsReferenceHourlyRate *bool    `json:"is_reference_hourly_rate"`
	Hours                 *float64 `json:"hours" validate:"omitempty,gte=0"`
}

type MarkPaidRequest struct {
	Tip *float64 `json:"tip" validate:"omitempty,gte=0"`
}

// RecordPaymentRequest sets the paid amount of one leg.
type RecordPaymentRequest struct {
	Leg    string   `json:"leg" validate:"omitempty,oneof=worker reference"`
	Amount float64  `json:"amount"`
	Tip    *float64 `json:"tip"`
}

type DebtSummaryDTO struct {
	TotalDebt   float64 `json:"total_debt"`
	UnpaidShift int     `json:"unpaid_shift"`
	UnpaidEvent int     `json:"unpaid_event"`
}

type BulkResultDTO struct {
	Total  int    `json:"total"`
	Marked int    `json:"marked"`
	Error  string `json:"error,omitempty"`
}

// =============================================================================
// STANDALONE PAYMENTS
// =============================================================================

type PaymentDTO struct {
	ID         string  `json:"id"`
	WorkerID   string  `json:"worker_id"`
	Amount     float64 `json:"amount"`
	DatePaid   string  `json:"date_paid"`
	SourceType string  `json:"source_type"`
	SourceID   *string `json:"source_id,omitempty"`
	Note       string  `json:"note,omitempty"`
}

type PaymentRequest struct {
	WorkerID   string  `json:"worker_id" validate:"required"`
	Amount     float64 `json:"amount" validate:"gt=0"`
	DatePaid   string  `json:"date_paid" validate:"required,datetime=2006-01-02"`
	SourceType string  `json:"source_type" validate:"omitempty,oneof=project event other"`
	SourceID   *string `json:"source_id"`
	Note       string  `json:"note"`
}

// =============================================================================
// AGGREGATES
// =============================================================================

type WorkerTotalsDTO struct {
	Earned     float64 `json:"earned"`
	Commission float64 `json:"commission"`
	Paid       float64 `json:"paid"`
	Net        float64 `json:"net"`
}

type FinancialsDTO struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Profit  float64 `json:"profit"`
}

type ProjectIncomeDTO struct {
	Fixed    float64 `json:"fixed"`
	NonFixed float64 `json:"non_fixed"`
	Total    float64 `json:"total"`
}

type CostDTO struct {
	Cost float64 `json:"cost"`
}

type EmployerProfitDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	FinancialsDTO
}

type DashboardDTO struct {
	DebtSummaryDTO
	Employers []EmployerProfitDTO `json:"employers"`
}

type WorkerDebtDTO struct {
	WorkerID    string  `json:"worker_id"`
	WorkerName  string  `json:"worker_name"`
	Outstanding float64 `json:"outstanding"`
}

// DigestDTO is one debt digest, workers largest first.
type DigestDTO struct {
	At string `json:"at"`
	DebtSummaryDTO
	Workers []WorkerDebtDTO `json:"workers"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(records.DateLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(records.DateLayout, s)
}

func money(d decimal.Decimal) float64 {
	return payment.Round2(d)
}

func moneyPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := money(*d)
	return &v
}

func decimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

func toWorkerDTO(w records.Worker) WorkerDTO {
	return WorkerDTO{
		ID:          w.ID,
		Name:        w.Name,
		Phone:       w.Phone,
		ReferenceID: w.ReferenceID,
		CreatedAt:   w.CreatedAt.Format(time.RFC3339),
	}
}

func toEmployerDTO(e records.Employer) EmployerDTO {
	return EmployerDTO{ID: e.ID, Name: e.Name, Phone: e.Phone, CreatedAt: e.CreatedAt.Format(time.RFC3339)}
}

func toProjectDTO(p records.Project) ProjectDTO {
	return ProjectDTO{
		ID:         p.ID,
		Name:       p.Name,
		Location:   p.Location,
		StartDate:  formatDate(p.StartDate),
		Status:     string(p.Status),
		EndDate:    formatDatePtr(p.EndDate),
		EmployerID: p.EmployerID,
	}
}

func toIncomeEntryDTO(e records.IncomeEntry) IncomeEntryDTO {
	return IncomeEntryDTO{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		Description: e.Description,
		Date:        formatDate(e.Date),
		Amount:      money(e.Amount),
		Units:       e.Units.InexactFloat64(),
		IsFixed:     e.IsFixed,
		Value:       money(e.Value()),
	}
}

func toShiftDTO(s records.Shift) ShiftDTO {
	return ShiftDTO{
		ID:        s.ID,
		ProjectID: s.ProjectID,
		Name:      s.Name,
		Date:      formatDate(s.Date),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Hours:     s.Hours.InexactFloat64(),
	}
}

func toEventDTO(e records.Event) EventDTO {
	return EventDTO{
		ID:         e.ID,
		Name:       e.Name,
		Location:   e.Location,
		Date:       formatDate(e.Date),
		StartTime:  e.StartTime,
		EndTime:    e.EndTime,
		Hours:      e.Hours.InexactFloat64(),
		Income:     money(e.Income),
		EmployerID: e.EmployerID,
	}
}

func toPaymentDTO(p records.Payment) PaymentDTO {
	return PaymentDTO{
		ID:         p.ID,
		WorkerID:   p.WorkerID,
		Amount:     money(p.Amount),
		DatePaid:   formatDate(p.DatePaid),
		SourceType: string(p.SourceType),
		SourceID:   p.SourceID,
		Note:       p.Note,
	}
}

// toAssignmentDTO prices an assignment for output.
func toAssignmentDTO(kind records.AssignmentKind, id, parentID, workerID string, hours decimal.Decimal,
	t records.Terms, s records.Settlement) AssignmentDTO {
	b := records.Price(t, s, hours)
	return AssignmentDTO{
		ID:                    id,
		Kind:                  string(kind),
		ParentID:              parentID,
		WorkerID:              workerID,
		Hours:                 hours.InexactFloat64(),
		IsHourlyRate:          t.IsHourlyRate,
		PayRate:               money(t.PayRate),
		ReferencePayRate:      moneyPtr(t.ReferencePayRate),
		IsReferenceHourlyRate: t.IsReferenceHourlyRate,

		IsPaid:              s.IsPaid,
		AmountPaid:          money(s.AmountPaid),
		TipAmount:           money(s.TipAmount),
		ReferenceAmountPaid: money(s.ReferenceAmountPaid),
		ReferenceTipAmount:  money(s.ReferenceTipAmount),

		WorkerPayment:       money(b.WorkerPayment),
		ReferencePayment:    money(b.ReferencePayment),
		TotalPayment:        money(b.Total()),
		NetPayment:          money(b.NetPayment),
		NetReferencePayment: money(b.NetReferencePayment),
		TotalNet:            money(b.TotalNet),
		State:               string(b.State),
	}
}

func toDebtItemDTO(it debts.DebtItem) AssignmentDTO {
	dto := toAssignmentDTO(it.Kind, it.AssignmentID, it.ParentID, it.WorkerID, it.Hours, it.Terms, it.Settlement)
	dto.WorkerName = it.WorkerName
	dto.ReferrerID = it.ReferrerID
	dto.ReferrerName = it.ReferrerName
	dto.ParentName = it.ParentName
	dto.ProjectName = it.ProjectName
	dto.Date = formatDate(it.Date)
	return dto
}

func toDebtItemDTOs(items []debts.DebtItem) []AssignmentDTO {
	dtos := make([]AssignmentDTO, len(items))
	for i, it := range items {
		dtos[i] = toDebtItemDTO(it)
	}
	return dtos
}

func toDebtSummaryDTO(s debts.Summary) DebtSummaryDTO {
	return DebtSummaryDTO{TotalDebt: money(s.TotalDebt), UnpaidShift: s.UnpaidShift, UnpaidEvent: s.UnpaidEvent}
}

func toDigestDTO(d Digest) DigestDTO {
	workers := make([]WorkerDebtDTO, len(d.Workers))
	for i, wd := range d.Workers {
		workers[i] = WorkerDebtDTO{WorkerID: wd.WorkerID, WorkerName: wd.WorkerName, Outstanding: money(wd.Outstanding)}
	}
	return DigestDTO{
		At:             d.At.Format(time.RFC3339),
		DebtSummaryDTO: toDebtSummaryDTO(d.Summary),
		Workers:        workers,
	}
}

func toFinancialsDTO(f aggregate.Financials) FinancialsDTO {
	return FinancialsDTO{Income: money(f.Income), Expense: money(f.Expense), Profit: money(f.Profit)}
}
