package workflow

import (
	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/shopspring/decimal"
)

type CandidateStatus string

const (
	CandidateStatusApproved CandidateStatus = "approved"
	CandidateStatusModified CandidateStatus = "modified"
	CandidateStatusRejected CandidateStatus = "rejected"
)

type MatchType string

const (
	MatchTypeExact MatchType = "exact"
	MatchTypeFuzzy MatchType = "fuzzy"
	MatchTypeAI    MatchType = "ai"
	MatchTypeNone  MatchType = "none"
)

type UserDecision string

const (
	DecisionPending     UserDecision = "pending"
	DecisionAcceptMatch UserDecision = "accept_match"
	DecisionCreateNew   UserDecision = "create_new"
)

// CandidateComponent is one extracted part record, not yet persisted.
type CandidateComponent struct {
	Name                   string               `json:"name"`
	Manufacturer           string               `json:"manufacturer"`
	ManufacturerPN         string               `json:"manufacturer_pn"`
	CategoryId             int                  `json:"category_id"`
	ComponentType          models.ComponentType `json:"component_type"`
	LaborSubtype           string               `json:"labor_subtype"`
	SupplierName           string               `json:"supplier_name"`
	Prices                 PriceSet             `json:"prices"`
	Currency               models.CurrencyCode  `json:"currency"`
	MsrpPrice              *decimal.Decimal     `json:"msrp_price,omitempty"`
	MsrpCurrency           models.CurrencyCode  `json:"msrp_currency,omitempty"`
	PartnerDiscountPercent *decimal.Decimal     `json:"partner_discount_percent,omitempty"`
	Confidence             float64              `json:"confidence"`
	Notes                  string               `json:"notes"`
}

// PreviewCandidate wraps a candidate with reconciliation metadata for the
// operator review loop. OriginalIndex is the immutable position in the
// extraction output: deletions must not renumber survivors, and the link to
// the MatchDecision rides on it.
type PreviewCandidate struct {
	ID string `json:"id"`
	CandidateComponent
	OriginalIndex     int              `json:"original_index"`
	Status            CandidateStatus  `json:"status"`
	IsEditing         bool             `json:"is_editing"`
	Decision          *MatchDecision   `json:"match_decision,omitempty"`
	MarginPercent     *decimal.Decimal `json:"margin_percent,omitempty"`
	HasMarginOverride bool             `json:"has_margin_override"`
}

// MatchCandidate is one library entry proposed for a candidate, read-only
// for the reconciler.
type MatchCandidate struct {
	Component  models.Component `json:"component"`
	Confidence float64          `json:"confidence"`
	Reasoning  string           `json:"reasoning"`
}

// MatchDecision tracks what the operator decided about a candidate's
// proposed matches. With no matches the decision is immaterial and never
// blocks finalize; with matches it starts pending and must be resolved.
type MatchDecision struct {
	ComponentIndex  int              `json:"component_index"`
	MatchType       MatchType        `json:"match_type"`
	Matches         []MatchCandidate `json:"matches"`
	UserDecision    UserDecision     `json:"user_decision"`
	SelectedMatchID *int             `json:"selected_match_id,omitempty"`
}

// Pending reports whether this decision still blocks finalize.
func (d *MatchDecision) Pending() bool {
	return d != nil && len(d.Matches) > 0 && d.UserDecision == DecisionPending
}
