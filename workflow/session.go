package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/shopspring/decimal"
)

type SessionPhase string

const (
	PhaseUploaded   SessionPhase = "uploaded"
	PhaseMatching   SessionPhase = "matching"
	PhaseReview     SessionPhase = "review"
	PhaseFinalizing SessionPhase = "finalizing"
	PhaseDone       SessionPhase = "done"
)

// CategoryProvider supplies the current category list to the session.
// Injected explicitly: the reconciler never reaches for ambient global
// state.
type CategoryProvider func(ctx context.Context) ([]models.ComponentCategory, error)

// QuoteMeta is the document metadata reported by the extractor, carried on
// the session until finalize turns it into a Quote record.
type QuoteMeta struct {
	DocumentType    models.DocumentType `json:"document_type"`
	SupplierName    string              `json:"supplier_name"`
	QuoteDate       time.Time           `json:"quote_date"`
	Currency        models.CurrencyCode `json:"currency"`
	Confidence      float64             `json:"confidence"`
	SourceObjectKey string              `json:"source_object_key"`
}

// Session owns all mutable reconciliation state for one upload/import flow.
// Candidates and decisions are mutated only through Apply, in place; no
// other component holds an independent mutable copy.
type Session struct {
	ID         string
	BusinessId string
	Meta       QuoteMeta

	Candidates []*PreviewCandidate
	Decisions  []*MatchDecision

	GlobalMarginPercent *decimal.Decimal

	Categories CategoryProvider

	Phase     SessionPhase
	CreatedAt time.Time

	mu sync.Mutex
}

var (
	ErrorSessionNotFound = errors.New("reconciliation session not found")
	ErrorCancelTooLate   = errors.New("session can only be cancelled before matching starts")
	ErrorWrongPhase      = errors.New("operation not allowed in current session phase")
)

// NewSession builds a session from an extraction result. Every candidate
// starts approved with its original index pinned.
func NewSession(businessId string, meta QuoteMeta, candidates []CandidateComponent, categories CategoryProvider) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		BusinessId: businessId,
		Meta:       meta,
		Categories: categories,
		Phase:      PhaseUploaded,
		CreatedAt:  time.Now().UTC(),
	}
	for i, c := range candidates {
		s.Candidates = append(s.Candidates, &PreviewCandidate{
			ID:                 uuid.NewString(),
			CandidateComponent: c,
			OriginalIndex:      i,
			Status:             CandidateStatusApproved,
		})
	}
	return s
}

// AttachDecisions wires matcher output to the candidates by original index
// and moves the session into review.
func (s *Session) AttachDecisions(decisions []*MatchDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Decisions = decisions
	byIndex := make(map[int]*MatchDecision, len(decisions))
	for _, d := range decisions {
		byIndex[d.ComponentIndex] = d
	}
	for _, c := range s.Candidates {
		c.Decision = byIndex[c.OriginalIndex]
	}
	s.Phase = PhaseReview
}

// PendingDecisions is the finalize validation gate: every decision that
// still has unresolved matches.
func (s *Session) PendingDecisions() []*MatchDecision {
	var pending []*MatchDecision
	for _, d := range s.Decisions {
		if d.Pending() {
			pending = append(pending, d)
		}
	}
	return pending
}

// Surviving returns the non-rejected candidates in original order.
// Rejected candidates are removed from the slice at delete time, so this is
// simply the current candidate list.
func (s *Session) Surviving() []*PreviewCandidate {
	return s.Candidates
}

func (s *Session) findCandidate(id string) (*PreviewCandidate, bool) {
	for _, c := range s.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Registry is the in-memory session store, keyed by session id. One
// reconciliation session exists per upload flow.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *Registry) Get(id string, businessId string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.BusinessId != businessId {
		return nil, ErrorSessionNotFound
	}
	return s, nil
}

// Cancel discards a session. Allowed only before matching starts; once
// matching or finalize is running there is no cancellation path.
func (r *Registry) Cancel(id string, businessId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.BusinessId != businessId {
		return ErrorSessionNotFound
	}
	if s.Phase != PhaseUploaded {
		return ErrorCancelTooLate
	}
	delete(r.sessions, id)
	return nil
}

// Remove drops a finished session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}
