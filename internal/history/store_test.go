package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"notifer/internal/dispatch"
	"notifer/internal/history"
	"notifer/internal/outcome"
	"notifer/internal/testsupport"
)

func sampleRecord(id string, started time.Time) dispatch.Record {
	return dispatch.Record{
		InvocationID: id,
		CredentialID: "notifer-token",
		Topic:        "ci-builds",
		Outcome:      outcome.Failure,
		State:        dispatch.StateSucceeded,
		Priority:     5,
		ResponseID:   "msg-" + id,
		StartedAt:    started,
		FinishedAt:   started.Add(250 * time.Millisecond),
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	if store.Path() != cfg.History.Path {
		t.Fatalf("expected path %q, got %q", cfg.History.Path, store.Path())
	}

	ctx := context.Background()
	start := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := store.Record(ctx, sampleRecord("inv-1", start)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entry, err := store.Get(ctx, "inv-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry to be found")
	}
	if entry.ID == 0 {
		t.Fatal("expected entry ID to be assigned")
	}
	if entry.Outcome != outcome.Failure || entry.State != dispatch.StateSucceeded {
		t.Fatalf("unexpected outcome/state: %v/%v", entry.Outcome, entry.State)
	}
	if entry.ResponseID != "msg-inv-1" || entry.Priority != 5 || entry.Topic != "ci-builds" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if !entry.StartedAt.Equal(start) {
		t.Fatalf("expected started %v, got %v", start, entry.StartedAt)
	}
	if entry.Duration() != 250*time.Millisecond {
		t.Fatalf("expected 250ms duration, got %v", entry.Duration())
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	first, err := history.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Record(ctx, sampleRecord("inv-1", time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := history.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	entries, err := second.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d", len(entries))
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Fractional seconds of different widths must still sort chronologically.
	offsets := []time.Duration{0, 100 * time.Millisecond, 120 * time.Millisecond, time.Second}
	for i, offset := range offsets {
		rec := sampleRecord(string(rune('a'+i)), base.Add(offset))
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.InvocationID)
	}
	want := []string{"d", "c", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRecordSuppressedFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	rec := sampleRecord("inv-err", time.Now())
	rec.State = dispatch.StateFailed
	rec.ResponseID = ""
	rec.StatusCode = 503
	rec.ErrorKind = "transport"
	rec.Error = "notifer API returned status 503: maintenance"
	rec.Suppressed = true
	if err := store.Record(ctx, rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entry, err := store.Get(ctx, "inv-err")
	if err != nil || entry == nil {
		t.Fatalf("Get failed: %v (entry=%v)", err, entry)
	}
	if !entry.Suppressed || entry.StatusCode != 503 || entry.ErrorKind != "transport" || entry.Error != rec.Error {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry.ResponseID != "" {
		t.Fatalf("expected empty response id, got %q", entry.ResponseID)
	}

	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil entry for unknown id, got %v, %v", missing, err)
	}

	if err := store.Record(ctx, rec); err == nil {
		t.Fatal("expected duplicate invocation id to be rejected")
	}
}

func TestPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	now := time.Now()
	_ = store.Record(ctx, sampleRecord("old", now.Add(-48*time.Hour)))
	_ = store.Record(ctx, sampleRecord("new", now))

	removed, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	entries, _ := store.Recent(ctx, 10)
	if len(entries) != 1 || entries[0].InvocationID != "new" {
		t.Fatalf("unexpected entries after prune: %#v", entries)
	}
}

func TestOpenFromConfigDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	if _, err := history.OpenFromConfig(context.Background(), cfg); !errors.Is(err, history.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestDispatcherRecordsIntoStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	server := testsupport.NewServer(t)
	ctx := context.Background()

	testsupport.PutCredential(t, cfg, "tok", "secret", "")
	resolver := credentialsFor(cfg)
	client := clientFor(t, server.URL)

	d := dispatch.New(resolver, client, dispatch.WithRecorder(store), dispatch.WithIDGenerator(func() string { return "inv-live" }))
	inv := dispatch.Invocation{
		CredentialID: "tok",
		Topic:        "builds",
		Outcome:      outcome.Success,
		Policy:       outcome.DefaultPolicy(),
	}
	if _, err := d.Dispatch(ctx, inv); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	entry, err := store.Get(ctx, "inv-live")
	if err != nil || entry == nil {
		t.Fatalf("Get failed: %v (entry=%v)", err, entry)
	}
	if entry.ResponseID != "msg-1" || entry.State != dispatch.StateSucceeded {
		t.Fatalf("unexpected entry: %#v", entry)
	}
}

func TestOpenFromConfigAppliesRetention(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.RetentionDays = 7
	ctx := context.Background()

	seed, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = seed.Record(ctx, sampleRecord("ancient", time.Now().AddDate(0, 0, -30)))
	_ = seed.Record(ctx, sampleRecord("recent", time.Now().Add(-time.Hour)))
	_ = seed.Close()

	store := testsupport.MustOpenHistory(t, cfg)
	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 || entries[0].InvocationID != "recent" {
		t.Fatalf("expected only the recent entry to survive, got %#v", entries)
	}

	if n, err := store.ApplyRetention(ctx, 0); err != nil || n != 0 {
		t.Fatalf("expected zero retention to keep everything, got %d, %v", n, err)
	}
}
