package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/quoting_backend/models"
)

// fakeRepo records every persistence call; failCreateFor makes CreateComponent
// fail for one candidate name to exercise per-item failure isolation.
type fakeRepo struct {
	calls         int
	quotes        []*models.NewQuote
	created       []*models.NewComponent
	cleared       []int
	appended      map[int][]*models.NewPriceHistory
	priceUpdates  []int
	failCreateFor string
	nextID        int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{appended: map[int][]*models.NewPriceHistory{}, nextID: 100}
}

func (r *fakeRepo) CreateQuoteRecord(_ context.Context, input *models.NewQuote) (*models.Quote, error) {
	r.calls++
	r.quotes = append(r.quotes, input)
	return &models.Quote{ID: 1, QuoteDate: input.QuoteDate, SupplierName: input.SupplierName}, nil
}

func (r *fakeRepo) CreateComponent(_ context.Context, input *models.NewComponent) (*models.Component, error) {
	r.calls++
	if input.Name == r.failCreateFor {
		return nil, errors.New("duplicate component name")
	}
	r.created = append(r.created, input)
	r.nextID++
	return &models.Component{ID: r.nextID, Name: input.Name}, nil
}

func (r *fakeRepo) UpdateComponentPrices(_ context.Context, id int, _ models.ComponentPrices) error {
	r.calls++
	r.priceUpdates = append(r.priceUpdates, id)
	return nil
}

func (r *fakeRepo) ClearCurrentPriceFlag(_ context.Context, componentId int) error {
	r.calls++
	r.cleared = append(r.cleared, componentId)
	return nil
}

func (r *fakeRepo) AppendPriceHistory(_ context.Context, componentId int, _ int, input *models.NewPriceHistory) (*models.PriceHistory, error) {
	r.calls++
	r.appended[componentId] = append(r.appended[componentId], input)
	return &models.PriceHistory{ComponentId: componentId}, nil
}

func staticRates(_ context.Context) (models.ExchangeRates, error) {
	return testRates(), nil
}

// finalizeReadySession: index 0 accepted against library component 7, index 1
// creates a new component.
func finalizeReadySession(t *testing.T) *Session {
	t.Helper()
	s := newReviewSession()
	if err := s.Apply(DecideEvent{CandidateID: s.Candidates[0].ID, Decision: DecisionAcceptMatch}); err != nil {
		t.Fatalf("decide: %v", err)
	}
	// price every candidate so normalization succeeds
	cpuPrice := dec("512.50")
	if err := s.Apply(EditEvent{CandidateID: s.Candidates[0].ID, Fields: FieldEdits{PriceUsd: &cpuPrice}}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	price := dec("25")
	if err := s.Apply(EditEvent{CandidateID: s.Candidates[1].ID, Fields: FieldEdits{PriceUsd: &price}}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	hmiPrice := dec("80")
	if err := s.Apply(EditEvent{CandidateID: s.Candidates[2].ID, Fields: FieldEdits{PriceUsd: &hmiPrice}}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	return s
}

func TestFinalize_PendingGateBlocksBeforeAnyWrite(t *testing.T) {
	repo := newFakeRepo()
	f := &Finalizer{Repo: repo, Rates: staticRates}
	s := newReviewSession() // candidate 0 still pending

	_, err := f.Finalize(context.Background(), s)

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if vErr.PendingCount != 1 {
		t.Errorf("PendingCount = %d, want 1", vErr.PendingCount)
	}
	if repo.calls != 0 {
		t.Errorf("repository called %d times behind the validation gate", repo.calls)
	}
	if s.Phase != PhaseReview {
		t.Errorf("Phase = %s, want review (unchanged)", s.Phase)
	}
}

func TestFinalize_AcceptAndCreatePaths(t *testing.T) {
	repo := newFakeRepo()
	f := &Finalizer{Repo: repo, Rates: staticRates}
	s := finalizeReadySession(t)

	result, err := f.Finalize(context.Background(), s)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if result.UpdatedCount != 1 || result.NewCount != 2 || result.ImportedCount != 3 {
		t.Errorf("counts = updated %d / new %d / imported %d, want 1/2/3",
			result.UpdatedCount, result.NewCount, result.ImportedCount)
	}
	if len(result.Failures) != 0 {
		t.Errorf("Failures = %v, want none", result.Failures)
	}
	if s.Phase != PhaseDone {
		t.Errorf("Phase = %s, want done", s.Phase)
	}

	// accept path: flag cleared, history appended and prices refreshed on the
	// top-ranked match (component 7)
	if len(repo.cleared) != 1 || repo.cleared[0] != 7 {
		t.Errorf("cleared = %v, want [7]", repo.cleared)
	}
	if len(repo.priceUpdates) != 1 || repo.priceUpdates[0] != 7 {
		t.Errorf("priceUpdates = %v, want [7]", repo.priceUpdates)
	}
	entries := repo.appended[7]
	if len(entries) != 1 || !entries[0].IsCurrentPrice {
		t.Fatalf("appended to 7 = %+v, want one current entry", entries)
	}
	// all three currencies populated by normalization
	if entries[0].UnitPriceNis.IsZero() || entries[0].UnitPriceUsd.IsZero() || entries[0].UnitPriceEur.IsZero() {
		t.Errorf("history entry not fully normalized: %+v", entries[0])
	}

	// create path: two new components, each with a current history row
	if len(repo.created) != 2 {
		t.Fatalf("created = %d components, want 2", len(repo.created))
	}
	for id, rows := range repo.appended {
		if id == 7 {
			continue
		}
		if len(rows) != 1 || !rows[0].IsCurrentPrice {
			t.Errorf("component %d history = %+v, want one current entry", id, rows)
		}
	}

	if len(repo.quotes) != 1 || repo.quotes[0].SupplierName != "ACME Controls" {
		t.Errorf("quotes = %+v, want one for ACME Controls", repo.quotes)
	}
}

func TestFinalize_SelectedMatchWins(t *testing.T) {
	repo := newFakeRepo()
	f := &Finalizer{Repo: repo, Rates: staticRates}
	s := finalizeReadySession(t)

	selected := 9
	if err := s.Apply(DecideEvent{CandidateID: s.Candidates[0].ID, Decision: DecisionAcceptMatch, SelectedMatchID: &selected}); err != nil {
		t.Fatalf("decide: %v", err)
	}

	if _, err := f.Finalize(context.Background(), s); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(repo.cleared) != 1 || repo.cleared[0] != 9 {
		t.Errorf("cleared = %v, want the explicitly selected match [9]", repo.cleared)
	}
}

func TestFinalize_PerItemFailureIsolation(t *testing.T) {
	repo := newFakeRepo()
	repo.failCreateFor = "Mounting Rail"
	f := &Finalizer{Repo: repo, Rates: staticRates}
	s := finalizeReadySession(t)

	result, err := f.Finalize(context.Background(), s)
	if err != nil {
		t.Fatalf("a failing item must not fail the batch: %v", err)
	}

	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %+v, want exactly one", result.Failures)
	}
	if result.Failures[0].ItemName != "Mounting Rail" || result.Failures[0].Reason == "" {
		t.Errorf("failure not itemized: %+v", result.Failures[0])
	}
	if result.ImportedCount != 2 {
		t.Errorf("ImportedCount = %d, want 2 (survivors committed)", result.ImportedCount)
	}
	if s.Phase != PhaseDone {
		t.Errorf("Phase = %s, want done despite the partial failure", s.Phase)
	}
}

func TestFinalize_RateFetchFailureFallsBack(t *testing.T) {
	repo := newFakeRepo()
	f := &Finalizer{Repo: repo, Rates: func(context.Context) (models.ExchangeRates, error) {
		return models.ExchangeRates{}, errors.New("redis down")
	}}
	s := finalizeReadySession(t)

	result, err := f.Finalize(context.Background(), s)
	if err != nil {
		t.Fatalf("Finalize must fall back to default rates: %v", err)
	}
	if result.ImportedCount != 3 {
		t.Errorf("ImportedCount = %d, want 3", result.ImportedCount)
	}
}

func TestFinalize_SecondCallWrongPhase(t *testing.T) {
	repo := newFakeRepo()
	f := &Finalizer{Repo: repo, Rates: staticRates}
	s := finalizeReadySession(t)

	if _, err := f.Finalize(context.Background(), s); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	_, err := f.Finalize(context.Background(), s)
	if !errors.Is(err, ErrorWrongPhase) {
		t.Fatalf("second finalize err = %v, want ErrorWrongPhase", err)
	}
}

func TestFinalize_QuoteCreateFailureRevertsPhase(t *testing.T) {
	repo := newFakeRepo()
	f := &Finalizer{Repo: repo, Rates: staticRates}
	s := finalizeReadySession(t)

	failing := &failingQuoteRepo{fakeRepo: repo}
	f.Repo = failing

	_, err := f.Finalize(context.Background(), s)
	if err == nil {
		t.Fatal("expected error when the quote record cannot be created")
	}
	if s.Phase != PhaseReview {
		t.Errorf("Phase = %s, want review so the operator can retry", s.Phase)
	}
}

type failingQuoteRepo struct {
	*fakeRepo
}

func (r *failingQuoteRepo) CreateQuoteRecord(context.Context, *models.NewQuote) (*models.Quote, error) {
	return nil, errors.New("db unavailable")
}
