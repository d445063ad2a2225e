package assembler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/mentora-ai/mentora/internal/config"
	"github.com/mentora-ai/mentora/internal/content"
	"github.com/mentora-ai/mentora/internal/profile"
	"github.com/mentora-ai/mentora/internal/retrieval"
	"github.com/mentora-ai/mentora/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockRetriever struct {
	mu     sync.Mutex
	result retrieval.Result
	err    error
	calls  int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ retrieval.Query) (retrieval.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return retrieval.Result{}, m.err
	}
	return m.result, nil
}

func (m *mockRetriever) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockTurns struct {
	mu     sync.Mutex
	turns  []session.Turn
	err    error
	block  bool
	limits []int
}

func (m *mockTurns) RecentTurns(ctx context.Context, _ uuid.UUID, limit int) ([]session.Turn, error) {
	m.mu.Lock()
	m.limits = append(m.limits, limit)
	blocked := m.block
	err := m.err
	turns := m.turns
	m.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return turns, nil
}

func (m *mockTurns) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.limits)
}

type mockProfiles struct {
	mu    sync.Mutex
	uc    profile.UserContext
	err   error
	calls int
}

func (m *mockProfiles) Get(context.Context, string) (profile.UserContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return profile.UserContext{}, m.err
	}
	return m.uc, nil
}

func (m *mockProfiles) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		SemanticWeight:      0.4,
		ContextWeight:       0.4,
		RecencyWeight:       0.2,
		SimilarityThreshold: 0.7,
		MaxResults:          3,
		TokenBudget:         2000,
		TaskTimeoutSeconds:  5,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func validQuery(sessionID string) retrieval.Query {
	return retrieval.Query{
		UserID:              "user-1",
		SessionID:           sessionID,
		QueryText:           "scholarship for engineering students",
		MaxResults:          3,
		SimilarityThreshold: 0.7,
	}
}

// resultWithTokens builds a one-item retrieval result whose text is
// sized to the wanted token estimate.
func resultWithTokens(tokens int) retrieval.Result {
	item := retrieval.ScoredItem{
		Item: content.Item{
			ID:   uuid.New(),
			Type: content.TypeDomainRecord,
			Text: strings.Repeat("a", tokens*4),
		},
		Similarity:     0.9,
		RelevanceScore: 0.9,
	}
	return retrieval.Result{
		ByType: map[content.Type][]retrieval.ScoredItem{
			content.TypeDomainRecord: {item},
		},
		TotalTokensEstimate: tokens,
	}
}

func TestAssembler_MergesAllSources(t *testing.T) {
	retriever := &mockRetriever{result: resultWithTokens(100)}
	turns := &mockTurns{turns: []session.Turn{
		{Role: session.RoleUser, Content: strings.Repeat("b", 40)},
		{Role: session.RoleAssistant, Content: strings.Repeat("c", 20)},
	}}
	profiles := &mockProfiles{uc: profile.UserContext{UserID: "user-1", DisplayName: "Ada"}}
	asm := New(retriever, turns, profiles, testConfig(), discardLogger())

	bundle, err := asm.Assemble(context.Background(), validQuery(uuid.NewString()))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if bundle.UserContext == nil || bundle.UserContext.DisplayName != "Ada" {
		t.Errorf("UserContext = %+v, want the stored profile", bundle.UserContext)
	}
	if got := len(bundle.Retrieval.ByType[content.TypeDomainRecord]); got != 1 {
		t.Errorf("retrieval carried %d records, want 1", got)
	}
	if len(bundle.RecentTurns) != 2 {
		t.Errorf("RecentTurns length = %d, want 2", len(bundle.RecentTurns))
	}
	// 100 retrieval tokens plus 40/4 + 20/4 for the two turns.
	if bundle.EstimatedTokens != 115 {
		t.Errorf("EstimatedTokens = %d, want 115", bundle.EstimatedTokens)
	}
	if retriever.callCount() != 1 || turns.callCount() != 1 || profiles.callCount() != 1 {
		t.Errorf("collaborator calls = %d/%d/%d, want one each",
			retriever.callCount(), turns.callCount(), profiles.callCount())
	}
}

func TestAssembler_DefaultTurnWindow(t *testing.T) {
	turns := &mockTurns{}
	asm := New(&mockRetriever{}, turns, &mockProfiles{}, testConfig(), discardLogger())

	if _, err := asm.Assemble(context.Background(), validQuery(uuid.NewString())); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	// Limit 0 delegates the window size to the turn reader's default.
	if len(turns.limits) != 1 || turns.limits[0] != 0 {
		t.Errorf("turn reader saw limits %v, want [0]", turns.limits)
	}
}

func TestAssembler_NoSessionSkipsTurns(t *testing.T) {
	turns := &mockTurns{turns: []session.Turn{{Role: session.RoleUser, Content: "old"}}}
	asm := New(&mockRetriever{}, turns, &mockProfiles{}, testConfig(), discardLogger())

	bundle, err := asm.Assemble(context.Background(), validQuery(""))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if turns.callCount() != 0 {
		t.Errorf("turn reader called %d times for a session-less query", turns.callCount())
	}
	if len(bundle.RecentTurns) != 0 {
		t.Errorf("RecentTurns = %v, want empty", bundle.RecentTurns)
	}
}

func TestAssembler_InvalidQuery(t *testing.T) {
	retriever := &mockRetriever{}
	turns := &mockTurns{}
	profiles := &mockProfiles{}
	asm := New(retriever, turns, profiles, testConfig(), discardLogger())

	q := validQuery("")
	q.UserID = ""
	if _, err := asm.Assemble(context.Background(), q); !errors.Is(err, retrieval.ErrInvalidQuery) {
		t.Fatalf("Assemble() error = %v, want ErrInvalidQuery", err)
	}
	if retriever.callCount() != 0 || turns.callCount() != 0 || profiles.callCount() != 0 {
		t.Error("invalid query reached a collaborator")
	}
}

func TestAssembler_MalformedSessionID(t *testing.T) {
	asm := New(&mockRetriever{}, &mockTurns{}, &mockProfiles{}, testConfig(), discardLogger())

	_, err := asm.Assemble(context.Background(), validQuery("not-a-uuid"))
	if !errors.Is(err, retrieval.ErrInvalidQuery) {
		t.Fatalf("Assemble() error = %v, want ErrInvalidQuery", err)
	}
}

func TestAssembler_MissingProfileLeavesNilContext(t *testing.T) {
	profiles := &mockProfiles{err: profile.ErrNotFound}
	asm := New(&mockRetriever{}, &mockTurns{}, profiles, testConfig(), discardLogger())

	bundle, err := asm.Assemble(context.Background(), validQuery(""))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if bundle.UserContext != nil {
		t.Errorf("UserContext = %+v, want nil for an unknown user", bundle.UserContext)
	}
}

func TestAssembler_ProfileFailureDegrades(t *testing.T) {
	profiles := &mockProfiles{err: errors.New("profile store down")}
	retriever := &mockRetriever{result: resultWithTokens(10)}
	asm := New(retriever, &mockTurns{}, profiles, testConfig(), discardLogger())

	bundle, err := asm.Assemble(context.Background(), validQuery(""))
	if err != nil {
		t.Fatalf("Assemble() error = %v, profile failure must not fail the bundle", err)
	}
	if bundle.UserContext != nil {
		t.Error("UserContext set despite profile failure")
	}
	if bundle.Retrieval.TotalTokensEstimate != 10 {
		t.Error("retrieval result lost when profile degraded")
	}
}

func TestAssembler_TurnFailureDegrades(t *testing.T) {
	turns := &mockTurns{err: errors.New("session store down")}
	retriever := &mockRetriever{result: resultWithTokens(10)}
	asm := New(retriever, turns, &mockProfiles{}, testConfig(), discardLogger())

	bundle, err := asm.Assemble(context.Background(), validQuery(uuid.NewString()))
	if err != nil {
		t.Fatalf("Assemble() error = %v, turn failure must not fail the bundle", err)
	}
	if len(bundle.RecentTurns) != 0 {
		t.Errorf("RecentTurns = %v, want empty after failure", bundle.RecentTurns)
	}
	if bundle.EstimatedTokens != 10 {
		t.Errorf("EstimatedTokens = %d, want the retrieval estimate alone", bundle.EstimatedTokens)
	}
}

func TestAssembler_RetrieveFailurePropagates(t *testing.T) {
	wantErr := errors.New("embedding resolution failed")
	retriever := &mockRetriever{err: wantErr}
	asm := New(retriever, &mockTurns{}, &mockProfiles{}, testConfig(), discardLogger())

	_, err := asm.Assemble(context.Background(), validQuery(""))
	if !errors.Is(err, wantErr) {
		t.Fatalf("Assemble() error = %v, want the retrieval error", err)
	}
}

func TestAssembler_SlowTurnFetchBoundedByDeadline(t *testing.T) {
	cfg := testConfig()
	cfg.TaskTimeoutSeconds = 1
	turns := &mockTurns{block: true}
	retriever := &mockRetriever{result: resultWithTokens(10)}
	asm := New(retriever, turns, &mockProfiles{}, cfg, discardLogger())

	start := time.Now()
	bundle, err := asm.Assemble(context.Background(), validQuery(uuid.NewString()))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Assemble() took %v, deadline did not bound the stuck fetch", elapsed)
	}
	if len(bundle.RecentTurns) != 0 {
		t.Error("stuck turn fetch still produced turns")
	}
	if bundle.Retrieval.TotalTokensEstimate != 10 {
		t.Error("retrieval result lost while waiting out the stuck fetch")
	}
}
