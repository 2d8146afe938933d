package workflow

import (
	"context"
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/mmdatafocus/quoting_backend/utils"
	"github.com/sirupsen/logrus"
)

// SemanticResult is the AI comparison verdict for one candidate/library pair.
type SemanticResult struct {
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// SemanticMatcher is the external AI comparison service (spec'd contract
// only; see the semantic package for the OpenAI-backed implementation).
type SemanticMatcher interface {
	Compare(ctx context.Context, candidate CandidateComponent, entry models.Component) (SemanticResult, error)
}

const (
	// DefaultFuzzyThreshold is the similarity floor for the fuzzy tier.
	DefaultFuzzyThreshold = 0.65
	// DefaultSemanticThreshold is the confidence floor for AI verdicts.
	DefaultSemanticThreshold = 0.5
	// semanticShortlistSize bounds how many library entries are sent to the
	// AI tier per candidate, to respect the external service's rate limits.
	semanticShortlistSize = 5
)

// Matcher runs the three-tier match (exact, fuzzy, semantic) for extracted
// candidates against the component library. It holds no state between calls.
type Matcher struct {
	Semantic          SemanticMatcher
	FuzzyThreshold    float64
	SemanticThreshold float64
	Logger            *logrus.Logger
}

func NewMatcher(semantic SemanticMatcher) *Matcher {
	return &Matcher{
		Semantic:          semantic,
		FuzzyThreshold:    DefaultFuzzyThreshold,
		SemanticThreshold: DefaultSemanticThreshold,
		Logger:            config.GetLogger(),
	}
}

// MatchAll produces one decision per candidate, in candidate order.
// Candidates are processed sequentially: one full three-tier match, awaiting
// any semantic call, before moving on. This keeps load on the AI service
// bounded and lets callers surface progressive feedback.
func (m *Matcher) MatchAll(ctx context.Context, candidates []CandidateComponent, library []models.Component) ([]*MatchDecision, error) {
	decisions := make([]*MatchDecision, 0, len(candidates))
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return decisions, err
		}
		decisions = append(decisions, m.matchOne(ctx, i, candidate, library))
	}
	return decisions, nil
}

func (m *Matcher) matchOne(ctx context.Context, index int, candidate CandidateComponent, library []models.Component) *MatchDecision {

	if matches := m.exactTier(candidate, library); len(matches) > 0 {
		return newDecision(index, MatchTypeExact, matches)
	}

	if matches := m.fuzzyTier(candidate, library); len(matches) > 0 {
		return newDecision(index, MatchTypeFuzzy, matches)
	}

	matches, err := m.semanticTier(ctx, candidate, library)
	if err != nil {
		// A failed AI call must never sink the whole batch: this candidate
		// is treated exactly like "no match found".
		if m.Logger != nil {
			config.LogError(m.Logger, "matcher.go", "matchOne", "semantic tier", candidate.Name, err)
		}
		return newDecision(index, MatchTypeNone, nil)
	}
	if len(matches) > 0 {
		return newDecision(index, MatchTypeAI, matches)
	}

	return newDecision(index, MatchTypeNone, nil)
}

func newDecision(index int, matchType MatchType, matches []MatchCandidate) *MatchDecision {
	userDecision := DecisionPending
	if len(matches) == 0 {
		matchType = MatchTypeNone
		matches = []MatchCandidate{}
	}
	// Descending confidence; ties keep library scan order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return &MatchDecision{
		ComponentIndex: index,
		MatchType:      matchType,
		Matches:        matches,
		UserDecision:   userDecision,
	}
}

// exactTier matches on a normalized manufacturer+PN key, falling back to
// manufacturer+name. Case- and whitespace-insensitive.
func (m *Matcher) exactTier(candidate CandidateComponent, library []models.Component) []MatchCandidate {

	var matches []MatchCandidate

	pnKey := ""
	if candidate.Manufacturer != "" && candidate.ManufacturerPN != "" {
		pnKey = utils.FoldKey(candidate.Manufacturer, candidate.ManufacturerPN)
	}
	nameKey := ""
	if candidate.Manufacturer != "" && candidate.Name != "" {
		nameKey = utils.FoldKey(candidate.Manufacturer, candidate.Name)
	}

	for _, entry := range library {
		if pnKey != "" && utils.FoldKey(entry.Manufacturer, entry.ManufacturerPN) == pnKey {
			matches = append(matches, MatchCandidate{
				Component:  entry,
				Confidence: 1.0,
				Reasoning:  "manufacturer and part number match exactly",
			})
			continue
		}
		if nameKey != "" && utils.FoldKey(entry.Manufacturer, entry.Name) == nameKey {
			matches = append(matches, MatchCandidate{
				Component:  entry,
				Confidence: 1.0,
				Reasoning:  "manufacturer and name match exactly",
			})
		}
	}
	return matches
}

func (m *Matcher) fuzzyTier(candidate CandidateComponent, library []models.Component) []MatchCandidate {

	threshold := m.FuzzyThreshold
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	var matches []MatchCandidate
	for _, entry := range library {
		score := fuzzyScore(candidate, entry)
		if score >= threshold {
			matches = append(matches, MatchCandidate{
				Component:  entry,
				Confidence: score,
				Reasoning:  "name/part number similarity",
			})
		}
	}
	return matches
}

// fuzzyScore is the best normalized levenshtein similarity across the
// name and part-number dimensions.
func fuzzyScore(candidate CandidateComponent, entry models.Component) float64 {
	score := similarity(candidate.Name, entry.Name)
	if s := similarity(candidate.ManufacturerPN, entry.ManufacturerPN); s > score {
		score = s
	}
	return score
}

func similarity(a, b string) float64 {
	a = utils.FoldKey(a)
	b = utils.FoldKey(b)
	if a == "" || b == "" {
		return 0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// semanticTier sends a similarity-ranked shortlist of library entries to the
// external AI comparison and keeps confident verdicts. Any call failure
// aborts the tier for this candidate only.
func (m *Matcher) semanticTier(ctx context.Context, candidate CandidateComponent, library []models.Component) ([]MatchCandidate, error) {

	if m.Semantic == nil || len(library) == 0 {
		return nil, nil
	}

	threshold := m.SemanticThreshold
	if threshold <= 0 {
		threshold = DefaultSemanticThreshold
	}

	shortlist := shortlistByWeakSimilarity(candidate, library, semanticShortlistSize)

	var matches []MatchCandidate
	for _, entry := range shortlist {
		result, err := m.Semantic.Compare(ctx, candidate, entry)
		if err != nil {
			return nil, err
		}
		if result.Confidence >= threshold {
			matches = append(matches, MatchCandidate{
				Component:  entry,
				Confidence: result.Confidence,
				Reasoning:  result.Reasoning,
			})
		}
	}
	return matches, nil
}

// shortlistByWeakSimilarity keeps the top-k library entries by fuzzy score,
// preserving library order among kept entries (stable tie-break).
func shortlistByWeakSimilarity(candidate CandidateComponent, library []models.Component, k int) []models.Component {
	if len(library) <= k {
		return library
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(library))
	for i, entry := range library {
		ranked[i] = scored{index: i, score: fuzzyScore(candidate, entry)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	ranked = ranked[:k]
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].index < ranked[j].index
	})

	out := make([]models.Component, 0, k)
	for _, r := range ranked {
		out = append(out, library[r.index])
	}
	return out
}
