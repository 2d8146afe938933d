package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/quoting_backend/models"
)

// DB-free tests: the matcher only reads the library slice it is given.

type fakeSemantic struct {
	results map[int]SemanticResult
	err     error
	calls   int
}

func (f *fakeSemantic) Compare(_ context.Context, _ CandidateComponent, entry models.Component) (SemanticResult, error) {
	f.calls++
	if f.err != nil {
		return SemanticResult{}, f.err
	}
	return f.results[entry.ID], nil
}

func testLibrary() []models.Component {
	return []models.Component{
		{ID: 1, Name: "SIMATIC S7-1200 CPU 1214C", Manufacturer: "Siemens", ManufacturerPN: "6ES7214-1AG40"},
		{ID: 2, Name: "PowerFlex 525 Drive", Manufacturer: "Allen-Bradley", ManufacturerPN: "25B-D010N104"},
		{ID: 3, Name: "NSX100F Circuit Breaker", Manufacturer: "Schneider", ManufacturerPN: "LV429630"},
	}
}

func TestMatcher_ExactTierWinsAndNormalizes(t *testing.T) {
	sem := &fakeSemantic{}
	m := &Matcher{Semantic: sem, FuzzyThreshold: DefaultFuzzyThreshold, SemanticThreshold: DefaultSemanticThreshold}

	candidate := CandidateComponent{
		Name:           "Some CPU",
		Manufacturer:   "  siemens ",
		ManufacturerPN: "6es7214-1ag40",
	}
	decisions, err := m.MatchAll(context.Background(), []CandidateComponent{candidate}, testLibrary())
	if err != nil {
		t.Fatalf("MatchAll: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("got %d decisions, want 1", len(decisions))
	}

	d := decisions[0]
	if d.MatchType != MatchTypeExact {
		t.Fatalf("MatchType = %s, want exact", d.MatchType)
	}
	if len(d.Matches) != 1 || d.Matches[0].Component.ID != 1 {
		t.Fatalf("Matches = %+v, want the Siemens entry", d.Matches)
	}
	if d.Matches[0].Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", d.Matches[0].Confidence)
	}
	if d.UserDecision != DecisionPending {
		t.Errorf("UserDecision = %s, want pending", d.UserDecision)
	}
	if sem.calls != 0 {
		t.Errorf("semantic tier consulted %d times after an exact hit", sem.calls)
	}
}

func TestMatcher_FuzzyTier(t *testing.T) {
	m := &Matcher{FuzzyThreshold: DefaultFuzzyThreshold, SemanticThreshold: DefaultSemanticThreshold}

	// One-character typo in the part number; no exact key matches.
	candidate := CandidateComponent{
		Name:           "PowerFlex Drive",
		Manufacturer:   "AB",
		ManufacturerPN: "25B-D010N105",
	}
	decisions, err := m.MatchAll(context.Background(), []CandidateComponent{candidate}, testLibrary())
	if err != nil {
		t.Fatalf("MatchAll: %v", err)
	}

	d := decisions[0]
	if d.MatchType != MatchTypeFuzzy {
		t.Fatalf("MatchType = %s, want fuzzy", d.MatchType)
	}
	if len(d.Matches) == 0 || d.Matches[0].Component.ID != 2 {
		t.Fatalf("Matches = %+v, want the PowerFlex entry first", d.Matches)
	}
	if d.Matches[0].Confidence < DefaultFuzzyThreshold {
		t.Errorf("Confidence = %v, below threshold", d.Matches[0].Confidence)
	}
}

func TestMatcher_NoMatchWithoutSemantic(t *testing.T) {
	m := &Matcher{FuzzyThreshold: DefaultFuzzyThreshold, SemanticThreshold: DefaultSemanticThreshold}

	candidate := CandidateComponent{Name: "Cable Tray 200mm", Manufacturer: "Unknown"}
	decisions, err := m.MatchAll(context.Background(), []CandidateComponent{candidate}, testLibrary())
	if err != nil {
		t.Fatalf("MatchAll: %v", err)
	}

	d := decisions[0]
	if d.MatchType != MatchTypeNone {
		t.Fatalf("MatchType = %s, want none", d.MatchType)
	}
	if d.Matches == nil || len(d.Matches) != 0 {
		t.Errorf("Matches = %v, want empty non-nil slice", d.Matches)
	}
	if d.Pending() {
		t.Error("a decision without matches must not block finalize")
	}
}

func TestMatcher_SemanticTier(t *testing.T) {
	sem := &fakeSemantic{results: map[int]SemanticResult{
		3: {Confidence: 0.8, Reasoning: "same breaker family"},
	}}
	m := &Matcher{Semantic: sem, FuzzyThreshold: DefaultFuzzyThreshold, SemanticThreshold: DefaultSemanticThreshold}

	candidate := CandidateComponent{Name: "Compact breaker 100A", Manufacturer: "Schneider Electric"}
	decisions, err := m.MatchAll(context.Background(), []CandidateComponent{candidate}, testLibrary())
	if err != nil {
		t.Fatalf("MatchAll: %v", err)
	}

	d := decisions[0]
	if d.MatchType != MatchTypeAI {
		t.Fatalf("MatchType = %s, want ai", d.MatchType)
	}
	if len(d.Matches) != 1 || d.Matches[0].Component.ID != 3 {
		t.Fatalf("Matches = %+v, want only the confident verdict", d.Matches)
	}
	if d.Matches[0].Reasoning != "same breaker family" {
		t.Errorf("Reasoning = %q", d.Matches[0].Reasoning)
	}
}

func TestMatcher_SemanticFailureIsPerCandidate(t *testing.T) {
	sem := &fakeSemantic{err: errors.New("rate limited")}
	m := &Matcher{Semantic: sem, FuzzyThreshold: DefaultFuzzyThreshold, SemanticThreshold: DefaultSemanticThreshold}

	candidates := []CandidateComponent{
		{Name: "Cable Tray 200mm"},
		{Name: "Some CPU", Manufacturer: "Siemens", ManufacturerPN: "6ES7214-1AG40"},
	}
	decisions, err := m.MatchAll(context.Background(), candidates, testLibrary())
	if err != nil {
		t.Fatalf("MatchAll must not fail on a semantic error: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(decisions))
	}
	if decisions[0].MatchType != MatchTypeNone {
		t.Errorf("failed candidate MatchType = %s, want none", decisions[0].MatchType)
	}
	if decisions[1].MatchType != MatchTypeExact {
		t.Errorf("second candidate MatchType = %s, want exact (unaffected)", decisions[1].MatchType)
	}
}

func TestMatcher_StableTieBreak(t *testing.T) {
	m := &Matcher{FuzzyThreshold: DefaultFuzzyThreshold}

	library := []models.Component{
		{ID: 10, Name: "Widget", Manufacturer: "Acme", ManufacturerPN: "W-100"},
		{ID: 11, Name: "Widget", Manufacturer: "Acme Corp", ManufacturerPN: "W-100B"},
	}
	candidate := CandidateComponent{Name: "Widget"}

	decisions, err := m.MatchAll(context.Background(), []CandidateComponent{candidate}, library)
	if err != nil {
		t.Fatalf("MatchAll: %v", err)
	}
	d := decisions[0]
	if len(d.Matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(d.Matches))
	}
	// Equal scores keep library scan order.
	if d.Matches[0].Component.ID != 10 || d.Matches[1].Component.ID != 11 {
		t.Errorf("tie-break order = [%d, %d], want [10, 11]", d.Matches[0].Component.ID, d.Matches[1].Component.ID)
	}
}

func TestMatcher_ContextCancellation(t *testing.T) {
	m := &Matcher{FuzzyThreshold: DefaultFuzzyThreshold}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.MatchAll(ctx, []CandidateComponent{{Name: "x"}}, testLibrary())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
