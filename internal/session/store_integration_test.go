//go:build integration

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mentora-ai/mentora/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tdb := testutil.SetupTestDB(t)
	return NewStore(tdb.Pool, testutil.DiscardLogger())
}

func TestStore_CreateGetRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if sess.ID == uuid.Nil {
		t.Fatal("Create() returned a nil session ID")
	}
	if !sess.Active || sess.MessageCount != 0 {
		t.Errorf("Create() = %+v, want active with zero messages", sess)
	}
	if sess.StartedAt.IsZero() {
		t.Error("Create() StartedAt not populated")
	}
	if sess.EndedAt != nil {
		t.Errorf("Create() EndedAt = %v, want nil", sess.EndedAt)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.UserID != "user-1" || !got.Active {
		t.Errorf("Get() = %+v", got)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListByUser_NewestFirstScopedToUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var created []*Session
	for range 3 {
		sess, err := store.Create(ctx, "user-1")
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		created = append(created, sess)
	}
	if _, err := store.Create(ctx, "user-2"); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	got, err := store.ListByUser(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("ListByUser() unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListByUser() returned %d sessions, want 2", len(got))
	}
	// Inserted sequentially, so the last created sorts first.
	if got[0].ID != created[2].ID {
		t.Errorf("ListByUser()[0].ID = %s, want newest %s", got[0].ID, created[2].ID)
	}
	for _, sess := range got {
		if sess.UserID != "user-1" {
			t.Errorf("ListByUser() leaked session for %q", sess.UserID)
		}
	}
}

func TestStore_AppendTurn_OrdersAndCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	score := 0.4
	seed := []Turn{
		{SessionID: sess.ID, Role: RoleUser, Content: "hello", Intent: "greeting", Sentiment: &score},
		{SessionID: sess.ID, Role: RoleAssistant, Content: "hi there"},
		{SessionID: sess.ID, Role: RoleUser, Content: "show me scholarships", Entities: []string{"scholarship"}},
	}
	for i, turn := range seed {
		stored, err := store.AppendTurn(ctx, turn)
		if err != nil {
			t.Fatalf("AppendTurn(%d) unexpected error: %v", i, err)
		}
		if stored.Index != i {
			t.Errorf("turn %d assigned index %d", i, stored.Index)
		}
		if stored.UserID != "user-1" {
			t.Errorf("turn %d UserID = %q, want the session owner", i, stored.UserID)
		}
		if stored.CreatedAt.IsZero() {
			t.Errorf("turn %d CreatedAt not populated", i)
		}
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.MessageCount != len(seed) {
		t.Errorf("MessageCount = %d, want %d", got.MessageCount, len(seed))
	}

	turns, err := store.Turns(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Turns() unexpected error: %v", err)
	}
	if len(turns) != len(seed) {
		t.Fatalf("Turns() returned %d, want %d", len(turns), len(seed))
	}
	if turns[0].Intent != "greeting" {
		t.Errorf("turn 0 Intent = %q", turns[0].Intent)
	}
	if turns[0].Sentiment == nil || *turns[0].Sentiment != score {
		t.Errorf("turn 0 Sentiment = %v, want %v", turns[0].Sentiment, score)
	}
	if turns[1].Sentiment != nil {
		t.Errorf("turn 1 Sentiment = %v, want nil", turns[1].Sentiment)
	}
	if len(turns[2].Entities) != 1 || turns[2].Entities[0] != "scholarship" {
		t.Errorf("turn 2 Entities = %v", turns[2].Entities)
	}
}

func TestStore_AppendTurn_MissingSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AppendTurn(context.Background(), Turn{
		SessionID: uuid.New(), Role: RoleUser, Content: "orphan",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("AppendTurn() error = %v, want ErrNotFound", err)
	}
}

func TestStore_AppendTurn_EndedSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if _, err := store.End(ctx, sess.ID, "done", nil, 0); err != nil {
		t.Fatalf("End() unexpected error: %v", err)
	}

	_, err = store.AppendTurn(ctx, Turn{SessionID: sess.ID, Role: RoleUser, Content: "late"})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("AppendTurn() error = %v, want ErrClosed", err)
	}
}

func TestStore_RecentTurns_WindowInChronologicalOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		if _, err := store.AppendTurn(ctx, Turn{SessionID: sess.ID, Role: RoleUser, Content: text}); err != nil {
			t.Fatalf("AppendTurn(%q) unexpected error: %v", text, err)
		}
	}

	turns, err := store.RecentTurns(ctx, sess.ID, 2)
	if err != nil {
		t.Fatalf("RecentTurns() unexpected error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("RecentTurns() returned %d, want 2", len(turns))
	}
	if turns[0].Content != "four" || turns[1].Content != "five" {
		t.Errorf("RecentTurns() = [%q, %q], want the newest two oldest-first",
			turns[0].Content, turns[1].Content)
	}
}

func TestStore_End_WritesClosingFieldsOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if _, err := store.AppendTurn(ctx, Turn{SessionID: sess.ID, Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AppendTurn() unexpected error: %v", err)
	}

	ended, err := store.End(ctx, sess.ID, "talked about scholarships", []string{"scholarship_search"}, 0.25)
	if err != nil {
		t.Fatalf("End() unexpected error: %v", err)
	}
	if ended.Active {
		t.Error("ended session still active")
	}
	if ended.EndedAt == nil {
		t.Error("ended session has no end timestamp")
	}
	if ended.Summary != "talked about scholarships" {
		t.Errorf("Summary = %q", ended.Summary)
	}
	if len(ended.KeyTopics) != 1 || ended.KeyTopics[0] != "scholarship_search" {
		t.Errorf("KeyTopics = %v", ended.KeyTopics)
	}
	if ended.SentimentTrend != 0.25 {
		t.Errorf("SentimentTrend = %v, want 0.25", ended.SentimentTrend)
	}
	if ended.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", ended.MessageCount)
	}

	// A second End must not overwrite the stored result.
	again, err := store.End(ctx, sess.ID, "a different summary", []string{"other"}, -1)
	if err != nil {
		t.Fatalf("second End() unexpected error: %v", err)
	}
	if again.Summary != "talked about scholarships" {
		t.Errorf("second End() Summary = %q, want the original", again.Summary)
	}
	if again.SentimentTrend != 0.25 {
		t.Errorf("second End() SentimentTrend = %v, want the original", again.SentimentTrend)
	}
}

func TestStore_LinkTurnContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	stored, err := store.AppendTurn(ctx, Turn{SessionID: sess.ID, Role: RoleUser, Content: "index me"})
	if err != nil {
		t.Fatalf("AppendTurn() unexpected error: %v", err)
	}
	if stored.ContentItemID != uuid.Nil {
		t.Fatalf("fresh turn ContentItemID = %s, want Nil", stored.ContentItemID)
	}

	itemID := uuid.New()
	if err := store.LinkTurnContent(ctx, stored.ID, itemID); err != nil {
		t.Fatalf("LinkTurnContent() unexpected error: %v", err)
	}

	turns, err := store.Turns(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Turns() unexpected error: %v", err)
	}
	if turns[0].ContentItemID != itemID {
		t.Errorf("ContentItemID = %s, want %s", turns[0].ContentItemID, itemID)
	}
}
