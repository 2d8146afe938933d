package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/sirupsen/logrus"
)

// ValidationError blocks finalize while match decisions remain unresolved.
// No state is mutated and no repository call is made when it is returned.
type ValidationError struct {
	PendingCount int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d match decision(s) still pending", e.PendingCount)
}

type ImportFailure struct {
	ItemName string `json:"item_name"`
	Reason   string `json:"reason"`
}

// ImportResult is the operator-facing outcome of a finalize call: full
// success, or partial success with itemized failures. Never a silent no-op.
type ImportResult struct {
	ImportedCount int             `json:"imported_count"`
	NewCount      int             `json:"new_count"`
	UpdatedCount  int             `json:"updated_count"`
	Failures      []ImportFailure `json:"failures"`
}

// Finalizer turns a reconciled session into persistence operations.
type Finalizer struct {
	Repo   Repository
	Rates  RateSource
	Logger *logrus.Logger
}

func NewFinalizer(repo Repository, rates RateSource) *Finalizer {
	return &Finalizer{Repo: repo, Rates: rates, Logger: config.GetLogger()}
}

// Finalize persists every surviving candidate. Candidates are processed
// sequentially so per-item success/failure counts stay deterministic; a
// failing item is recorded and the loop continues - already-committed items
// are not rolled back.
func (f *Finalizer) Finalize(ctx context.Context, s *Session) (*ImportResult, error) {

	s.mu.Lock()
	if s.Phase != PhaseReview {
		s.mu.Unlock()
		return nil, ErrorWrongPhase
	}
	if pending := s.PendingDecisions(); len(pending) > 0 {
		s.mu.Unlock()
		return nil, &ValidationError{PendingCount: len(pending)}
	}
	s.Phase = PhaseFinalizing
	s.mu.Unlock()

	rates := models.DefaultExchangeRates()
	if f.Rates != nil {
		fetched, err := f.Rates(ctx)
		if err != nil {
			// A rate fetch failure must not block the import; the stale
			// default factors are used instead.
			if f.Logger != nil {
				config.LogError(f.Logger, "finalizer.go", "Finalize", "fetch exchange rates", s.ID, err)
			}
		} else {
			rates = fetched
		}
	}

	quote, err := f.Repo.CreateQuoteRecord(ctx, &models.NewQuote{
		SupplierName:    s.Meta.SupplierName,
		QuoteDate:       s.Meta.QuoteDate,
		DocumentType:    s.Meta.DocumentType,
		SourceObjectKey: s.Meta.SourceObjectKey,
		Currency:        s.Meta.Currency,
		Confidence:      s.Meta.Confidence,
	})
	if err != nil {
		s.mu.Lock()
		s.Phase = PhaseReview
		s.mu.Unlock()
		return nil, fmt.Errorf("create quote record: %w", err)
	}

	result := &ImportResult{Failures: []ImportFailure{}}

	for _, candidate := range s.Surviving() {
		if err := f.finalizeOne(ctx, candidate, quote.ID, quote.QuoteDate, rates); err != nil {
			if f.Logger != nil {
				config.LogError(f.Logger, "finalizer.go", "Finalize", "persist candidate", candidate.Name, err)
			}
			result.Failures = append(result.Failures, ImportFailure{
				ItemName: candidate.Name,
				Reason:   err.Error(),
			})
			continue
		}
		if isAcceptMatch(candidate) {
			result.UpdatedCount++
		} else {
			result.NewCount++
		}
	}
	result.ImportedCount = result.NewCount + result.UpdatedCount

	s.mu.Lock()
	s.Phase = PhaseDone
	s.mu.Unlock()

	return result, nil
}

func isAcceptMatch(c *PreviewCandidate) bool {
	return c.Decision != nil && len(c.Decision.Matches) > 0 && c.Decision.UserDecision == DecisionAcceptMatch
}

func (f *Finalizer) finalizeOne(ctx context.Context, c *PreviewCandidate, quoteId int, quoteDate time.Time, rates models.ExchangeRates) error {

	prices, err := NormalizePrices(c.Prices, c.Currency, rates)
	if err != nil {
		return fmt.Errorf("normalize prices: %w", err)
	}

	entry := &models.NewPriceHistory{
		UnitPriceNis:    prices.Nis,
		UnitPriceUsd:    prices.Usd,
		UnitPriceEur:    prices.Eur,
		Currency:        prices.Currency,
		QuoteDate:       quoteDate,
		SupplierName:    c.SupplierName,
		ConfidenceScore: c.Confidence,
		IsCurrentPrice:  true,
	}

	if isAcceptMatch(c) {
		target, err := resolveTarget(c.Decision)
		if err != nil {
			return err
		}
		if err := f.Repo.ClearCurrentPriceFlag(ctx, target.ID); err != nil {
			return fmt.Errorf("clear current price flag: %w", err)
		}
		if _, err := f.Repo.AppendPriceHistory(ctx, target.ID, quoteId, entry); err != nil {
			return fmt.Errorf("append price history: %w", err)
		}
		if err := f.Repo.UpdateComponentPrices(ctx, target.ID, models.ComponentPrices{
			UnitPriceNis: prices.Nis,
			UnitPriceUsd: prices.Usd,
			UnitPriceEur: prices.Eur,
			Currency:     prices.Currency,
		}); err != nil {
			return fmt.Errorf("update component prices: %w", err)
		}
		return nil
	}

	// No decision, create_new, or matchType none: a new library component.
	created, err := f.Repo.CreateComponent(ctx, &models.NewComponent{
		Name:           c.Name,
		Manufacturer:   c.Manufacturer,
		ManufacturerPN: c.ManufacturerPN,
		CategoryId:     c.CategoryId,
		ComponentType:  c.ComponentType,
		LaborSubtype:   c.LaborSubtype,
		UnitPriceNis:   prices.Nis,
		UnitPriceUsd:   prices.Usd,
		UnitPriceEur:   prices.Eur,
		Currency:       prices.Currency,
		Description:    c.Notes,
	})
	if err != nil {
		return fmt.Errorf("create component: %w", err)
	}
	if _, err := f.Repo.AppendPriceHistory(ctx, created.ID, quoteId, entry); err != nil {
		return fmt.Errorf("append price history: %w", err)
	}
	return nil
}

// resolveTarget picks the library component an accept_match decision points
// at: the explicitly selected match when set, otherwise the top-ranked one.
func resolveTarget(d *MatchDecision) (*models.Component, error) {
	if d.SelectedMatchID != nil {
		for i := range d.Matches {
			if d.Matches[i].Component.ID == *d.SelectedMatchID {
				return &d.Matches[i].Component, nil
			}
		}
		return nil, errors.New("selected match not found in decision")
	}
	return &d.Matches[0].Component, nil
}
