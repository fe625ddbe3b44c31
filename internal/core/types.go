package core

import (
	"context"
	"time"
)

// RawRow is one spreadsheet row. Cells are addressed by position only and
// any index may be missing.
type RawRow []string

// Customer status values.
const (
	StatusNew      = "new"
	StatusExisting = "existing"
)

// PhoneIdentity is the normalized phone number used as customer identity.
// An unparseable number keeps CountryCode empty and the cleaned raw text as
// NationalNumber.
type PhoneIdentity struct {
	CountryCode    string `json:"country_code"`
	NationalNumber string `json:"national_number"`
}

// String returns the identity in E.164-like form for log output.
func (p PhoneIdentity) String() string {
	return p.CountryCode + p.NationalNumber
}

// LeadKey identifies a lead for duplicate detection.
type LeadKey struct {
	LeadDate string        `json:"lead_date"`
	Phone    PhoneIdentity `json:"phone"`
}

// RowFields holds the trimmed cell values of one row, before normalization.
type RowFields struct {
	CreatedTime  string
	AdName       string
	AdsetName    string
	CampaignName string
	FormName     string
	Platform     string
	StartDateRaw string
	PeopleCount  string
	FullName     string
	Email        string
	PhoneRaw     string
	City         string
}

// LeadCandidate is a normalized row, ready for resolution and reconciliation.
type LeadCandidate struct {
	CreatedTime        string // used verbatim as lead_date
	AdName             string
	AdsetName          string
	CampaignName       string
	FormName           string
	Platform           string
	City               string
	PreferredStartDate string // YYYY-MM-DD, empty if unparseable
	PeopleCount        string
	FullName           string
	Email              string
	Phone              PhoneIdentity
}

// Key returns the duplicate-detection key of the candidate.
func (c LeadCandidate) Key() LeadKey {
	return LeadKey{LeadDate: c.CreatedTime, Phone: c.Phone}
}

// Customer is a deduplicated identity keyed by normalized phone.
type Customer struct {
	ID     int64         `json:"id"`
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Phone  PhoneIdentity `json:"phone"`
	Status string        `json:"customer_status"`
}

// Lead is one persisted row of the addleads table.
type Lead struct {
	ID              int64         `json:"id"`
	LeadDate        string        `json:"lead_date"`
	AdCopy          string        `json:"ad_copy"`
	AdSet           string        `json:"ad_set"`
	LeadType        string        `json:"lead_type"`
	Sources         string        `json:"sources"`
	StartDate       string        `json:"start_date"`
	PeopleCount     string        `json:"people_count"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Phone           PhoneIdentity `json:"phone"`
	OriginCity      string        `json:"origincity"`
	Channel         string        `json:"channel"`
	Destination     string        `json:"destination"`
	PrimarySource   string        `json:"primary_source"`
	SecondarySource string        `json:"secondary_source"`
	CustomerID      int64         `json:"customer_id"`
	CustomerStatus  string        `json:"customer_status"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Action is what a cycle did with one row.
type Action string

const (
	ActionInserted      Action = "inserted"
	ActionStatusUpdated Action = "status_updated"
	ActionSkipped       Action = "skipped"
	ActionFailed        Action = "failed"
)

// Outcome is the structured result of processing one row.
type Outcome struct {
	Row        int     `json:"row"` // 1-based sheet row, header is row 1
	Action     Action  `json:"action"`
	Key        LeadKey `json:"key"`
	CustomerID int64   `json:"customer_id,omitempty"`
	LeadID     int64   `json:"lead_id,omitempty"`
	Status     string  `json:"customer_status,omitempty"`
	Details    string  `json:"details,omitempty"`
	Code       string  `json:"code,omitempty"` // MapError code for failed rows
}

// CycleReport summarizes one sync cycle.
type CycleReport struct {
	ID            string        `json:"id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	TotalRows     int           `json:"total_rows"` // data rows, header excluded
	Inserted      int           `json:"inserted"`
	StatusUpdated int           `json:"status_updated"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	Outcomes      []Outcome     `json:"outcomes"`
}

func (r *CycleReport) record(o Outcome) {
	switch o.Action {
	case ActionInserted:
		r.Inserted++
	case ActionStatusUpdated:
		r.StatusUpdated++
	case ActionSkipped:
		r.Skipped++
	case ActionFailed:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Session is one exclusive store connection, owned by a single cycle.
// Lookups return ErrNotFound when no row matches.
type Session interface {
	FindCustomerByPhone(ctx context.Context, phone PhoneIdentity) (Customer, error)
	// InsertCustomer stores c and returns the stored row. If a customer with
	// the same phone identity already exists, that row is returned instead.
	InsertCustomer(ctx context.Context, c Customer) (Customer, error)
	FindLeadByKey(ctx context.Context, key LeadKey) (Lead, error)
	// InsertLead returns ErrDuplicateLead if the key was taken concurrently.
	InsertLead(ctx context.Context, l Lead) (Lead, error)
	UpdateLeadCustomerStatus(ctx context.Context, leadID int64, status string) error
	Release()
}

// Store hands out sessions.
type Store interface {
	Acquire(ctx context.Context) (Session, error)
}

// RowSource returns the full current row block, header included.
type RowSource interface {
	FetchRows(ctx context.Context) ([]RawRow, error)
}

// OutcomeSink receives finished cycle reports.
type OutcomeSink interface {
	Publish(ctx context.Context, report CycleReport) error
}

// CycleGuard serializes cycles across processes.
type CycleGuard interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}
