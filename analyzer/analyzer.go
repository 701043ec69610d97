// Package analyzer defines the contract with the external AI text-analysis
// service: a bounded context (single sender's recent messages) or a full
// dialogue transcript goes in, a numeric confidence plus optional structured
// role/signal data comes out. The engine tolerates the service's latency and
// failures; callers bound every Analyze call with a context deadline.
package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leadflow/leadflow/core"
)

// RequestKind selects between the two analysis shapes.
type RequestKind int

const (
	// IndividualRequest analyzes one sender's recent message context.
	IndividualRequest RequestKind = iota
	// DialogueRequest analyzes a whole session transcript with participant
	// metadata.
	DialogueRequest
)

// Request is the normalized analyzer input.
type Request struct {
	Kind      RequestKind
	ChannelID string
	// SubjectID is the sender ID (individual) or session ID (dialogue).
	SubjectID string
	// Messages carry the bounded context or full transcript, oldest first.
	Messages []core.Message
	// Participants is populated on the dialogue path.
	Participants []*core.ParticipantProfile
}

// Result is the analyzer verdict. Confidence is always present (0-100);
// every structured field is optional and absent when the provider returned
// nothing usable for it.
type Result struct {
	Confidence int  `json:"confidence_score"`
	IsLead     bool `json:"is_lead"`

	core.AnalysisExtras

	// Roles maps participant IDs to inferred roles (dialogue path only).
	Roles map[string]core.RoleAssignment `json:"roles,omitempty"`
}

// Analyzer scores text for commercial interest. Implementations must honor
// context cancellation; they are called concurrently from many sessions.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// Mock is a deterministic in-memory Analyzer for tests and local runs.
// Canned results are keyed by subject ID; unkeyed requests receive the
// default result. An optional delay simulates provider latency so timeout
// behavior can be exercised.
type Mock struct {
	mu      sync.Mutex
	results map[string]*Result
	def     Result
	delay   time.Duration
	err     error
	calls   []Request
}

// NewMock constructs a Mock with a neutral default result.
func NewMock() *Mock {
	return &Mock{
		results: map[string]*Result{},
		def:     Result{Confidence: 50},
	}
}

// AddResult registers a canned result for a subject ID.
func (m *Mock) AddResult(subjectID string, res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[subjectID] = &res
}

// SetDefault replaces the fallback result.
func (m *Mock) SetDefault(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.def = res
}

// SetDelay makes every Analyze call block for d (or until cancellation).
func (m *Mock) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetError makes every Analyze call fail.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of all requests observed so far.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Analyze implements Analyzer.
func (m *Mock) Analyze(ctx context.Context, req Request) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	delay, err := m.delay, m.err
	res, ok := m.results[req.SubjectID]
	def := m.def
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("mock analyzer: %w", err)
	}
	if !ok {
		cp := def
		return &cp, nil
	}
	cp := *res
	return &cp, nil
}
