package workflow

import (
	"errors"
	"fmt"

	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/shopspring/decimal"
)

// The reconciler is an explicit event/command state machine over the
// session: every operator interaction is an Event applied through
// Session.Apply, independently testable without any UI harness.
//
// Candidate status transitions:
//
//	approved -> modified   (field edit, bulk edit, margin change)
//	approved|modified -> rejected  (delete; terminal, candidate removed)
//
// Decision transitions:
//
//	pending -> accept_match | create_new  (idempotent re-selection)
type Event interface {
	eventName() string
}

// FieldEdits carries optional per-field updates; nil means "leave as is".
type FieldEdits struct {
	Name           *string               `json:"name,omitempty"`
	Manufacturer   *string               `json:"manufacturer,omitempty"`
	ManufacturerPN *string               `json:"manufacturer_pn,omitempty"`
	CategoryId     *int                  `json:"category_id,omitempty"`
	ComponentType  *models.ComponentType `json:"component_type,omitempty"`
	LaborSubtype   *string               `json:"labor_subtype,omitempty"`
	SupplierName   *string               `json:"supplier_name,omitempty"`
	Currency       *models.CurrencyCode  `json:"currency,omitempty"`
	PriceNis       *decimal.Decimal      `json:"price_nis,omitempty"`
	PriceUsd       *decimal.Decimal      `json:"price_usd,omitempty"`
	PriceEur       *decimal.Decimal      `json:"price_eur,omitempty"`
	MsrpPrice      *decimal.Decimal      `json:"msrp_price,omitempty"`
	MsrpCurrency   *models.CurrencyCode  `json:"msrp_currency,omitempty"`
	Notes          *string               `json:"notes,omitempty"`
}

type EditEvent struct {
	CandidateID string     `json:"candidate_id"`
	Fields      FieldEdits `json:"fields"`
}

func (EditEvent) eventName() string { return "edit" }

type DeleteEvent struct {
	CandidateID string `json:"candidate_id"`
}

func (DeleteEvent) eventName() string { return "delete" }

type DecideEvent struct {
	CandidateID     string       `json:"candidate_id"`
	Decision        UserDecision `json:"decision"`
	SelectedMatchID *int         `json:"selected_match_id,omitempty"`
}

func (DecideEvent) eventName() string { return "decide" }

// BulkEditEvent fills manufacturer/supplier on every surviving candidate
// whose own field is empty. Populated fields are never overwritten.
type BulkEditEvent struct {
	Manufacturer string `json:"manufacturer"`
	SupplierName string `json:"supplier_name"`
}

func (BulkEditEvent) eventName() string { return "bulk_edit" }

type GlobalMarginEvent struct {
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

func (GlobalMarginEvent) eventName() string { return "global_margin" }

type ItemMarginEvent struct {
	CandidateID   string          `json:"candidate_id"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

func (ItemMarginEvent) eventName() string { return "item_margin" }

var ErrorCandidateNotFound = errors.New("candidate not found in session")

// Apply mutates the session according to one operator event.
func (s *Session) Apply(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseReview {
		return ErrorWrongPhase
	}

	switch e := event.(type) {
	case EditEvent:
		return s.applyEdit(e)
	case DeleteEvent:
		return s.applyDelete(e)
	case DecideEvent:
		return s.applyDecide(e)
	case BulkEditEvent:
		s.applyBulkEdit(e)
		return nil
	case GlobalMarginEvent:
		s.applyGlobalMargin(e)
		return nil
	case ItemMarginEvent:
		return s.applyItemMargin(e)
	default:
		return fmt.Errorf("unknown event %q", event.eventName())
	}
}

func (s *Session) applyEdit(e EditEvent) error {
	c, ok := s.findCandidate(e.CandidateID)
	if !ok {
		return ErrorCandidateNotFound
	}

	f := e.Fields
	if f.Name != nil {
		c.Name = *f.Name
	}
	if f.Manufacturer != nil {
		c.Manufacturer = *f.Manufacturer
	}
	if f.ManufacturerPN != nil {
		c.ManufacturerPN = *f.ManufacturerPN
	}
	if f.CategoryId != nil {
		c.CategoryId = *f.CategoryId
	}
	if f.ComponentType != nil {
		c.ComponentType = *f.ComponentType
	}
	if f.LaborSubtype != nil {
		c.LaborSubtype = *f.LaborSubtype
	}
	if f.SupplierName != nil {
		c.SupplierName = *f.SupplierName
	}
	if f.Currency != nil {
		c.Currency = *f.Currency
	}
	if f.PriceNis != nil {
		c.Prices.Set(models.CurrencyNIS, *f.PriceNis)
	}
	if f.PriceUsd != nil {
		c.Prices.Set(models.CurrencyUSD, *f.PriceUsd)
	}
	if f.PriceEur != nil {
		c.Prices.Set(models.CurrencyEUR, *f.PriceEur)
	}
	if f.MsrpPrice != nil {
		c.MsrpPrice = f.MsrpPrice
	}
	if f.MsrpCurrency != nil {
		c.MsrpCurrency = *f.MsrpCurrency
	}
	if f.Notes != nil {
		c.Notes = *f.Notes
	}

	c.IsEditing = false
	if c.Status == CandidateStatusApproved {
		c.Status = CandidateStatusModified
	}
	return nil
}

// applyDelete rejects a candidate. Rejection is terminal: the candidate
// leaves the result set entirely and its MatchDecision is retired from the
// active set, so it no longer needs resolving. Surviving candidates keep
// their original indexes.
func (s *Session) applyDelete(e DeleteEvent) error {
	c, ok := s.findCandidate(e.CandidateID)
	if !ok {
		return ErrorCandidateNotFound
	}

	c.Status = CandidateStatusRejected

	for i, sc := range s.Candidates {
		if sc.ID == c.ID {
			s.Candidates = append(s.Candidates[:i], s.Candidates[i+1:]...)
			break
		}
	}
	for i, d := range s.Decisions {
		if d.ComponentIndex == c.OriginalIndex {
			s.Decisions = append(s.Decisions[:i], s.Decisions[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Session) applyDecide(e DecideEvent) error {
	c, ok := s.findCandidate(e.CandidateID)
	if !ok {
		return ErrorCandidateNotFound
	}
	if c.Decision == nil || len(c.Decision.Matches) == 0 {
		// nothing to resolve; already conceptually decided
		return nil
	}

	switch e.Decision {
	case DecisionAcceptMatch:
		c.Decision.UserDecision = DecisionAcceptMatch
		if e.SelectedMatchID != nil {
			c.Decision.SelectedMatchID = e.SelectedMatchID
		}
	case DecisionCreateNew:
		c.Decision.UserDecision = DecisionCreateNew
		c.Decision.SelectedMatchID = nil
	default:
		return fmt.Errorf("invalid decision %q", e.Decision)
	}
	return nil
}

func (s *Session) applyBulkEdit(e BulkEditEvent) {
	for _, c := range s.Candidates {
		changed := false
		if e.Manufacturer != "" && c.Manufacturer == "" {
			c.Manufacturer = e.Manufacturer
			changed = true
		}
		if e.SupplierName != "" && c.SupplierName == "" {
			c.SupplierName = e.SupplierName
			changed = true
		}
		if changed && c.Status == CandidateStatusApproved {
			c.Status = CandidateStatusModified
		}
	}
}

// applyGlobalMargin recomputes the partner price for every candidate with
// MSRP data that has not latched a per-item override.
func (s *Session) applyGlobalMargin(e GlobalMarginEvent) {
	margin := e.MarginPercent
	s.GlobalMarginPercent = &margin

	for _, c := range s.Candidates {
		if c.HasMarginOverride {
			continue
		}
		if !s.recomputePartner(c, margin) {
			continue
		}
		c.Status = CandidateStatusModified
	}
}

// applyItemMargin recomputes one candidate and latches its override flag.
// The latch is one-way: there is no exposed action that clears it, so
// global margin changes skip this candidate from now on.
func (s *Session) applyItemMargin(e ItemMarginEvent) error {
	c, ok := s.findCandidate(e.CandidateID)
	if !ok {
		return ErrorCandidateNotFound
	}

	if s.recomputePartner(c, e.MarginPercent) {
		c.Status = CandidateStatusModified
	}
	c.HasMarginOverride = true
	return nil
}

func (s *Session) recomputePartner(c *PreviewCandidate, margin decimal.Decimal) bool {
	if c.MsrpPrice == nil || c.MsrpCurrency == "" {
		return false
	}
	c.Prices = ComputePartnerFromMSRP(*c.MsrpPrice, c.MsrpCurrency, margin)
	c.Currency = c.MsrpCurrency
	m := margin
	c.MarginPercent = &m
	if discount, ok := ComputeDiscountFromPrices(*c.MsrpPrice, *c.Prices.Get(c.MsrpCurrency)); ok {
		c.PartnerDiscountPercent = &discount
	} else {
		c.PartnerDiscountPercent = nil
	}
	return true
}
