package user_test

import (
	"context"
	"testing"

	app "github.com/mohammadpnp/user-upsert/internal/application/user"
	domain "github.com/mohammadpnp/user-upsert/internal/domain/user"
)

type scriptedUpserter struct {
	errs  []error
	calls int
}

func (s *scriptedUpserter) Execute(ctx context.Context, record app.Record) error {
	err := s.errs[s.calls]
	s.calls++
	return err
}

type fakeNotifier struct {
	succeeded []string
	failed    []string
	reasons   []string
}

func (f *fakeNotifier) UpsertSucceeded(ctx context.Context, matchValue string) {
	f.succeeded = append(f.succeeded, matchValue)
}

func (f *fakeNotifier) UpsertFailed(ctx context.Context, matchValue, reason string) {
	f.failed = append(f.failed, matchValue)
	f.reasons = append(f.reasons, reason)
}

func TestProcessBatchIsolatesRecordFailures(t *testing.T) {
	t.Parallel()

	upserter := &scriptedUpserter{errs: []error{
		nil,
		&domain.UpsertError{Kind: domain.KindEmailTaken, Value: "b@x.com"},
		nil,
	}}
	notifier := &fakeNotifier{}
	batch := app.NewProcessBatch(upserter, notifier, "U")

	outcomes, err := batch.Execute(context.Background(), []app.Record{
		{"U": "alice"},
		{"U": "bob"},
		{"U": "carol"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].MatchValue != "alice" || outcomes[0].Error != "" {
		t.Fatalf("unexpected first outcome: %#v", outcomes[0])
	}
	if outcomes[1].MatchValue != "bob" || outcomes[1].Error == "" {
		t.Fatalf("unexpected second outcome: %#v", outcomes[1])
	}
	if outcomes[2].MatchValue != "carol" || outcomes[2].Error != "" {
		t.Fatalf("unexpected third outcome: %#v", outcomes[2])
	}

	if len(notifier.succeeded) != 2 || len(notifier.failed) != 1 {
		t.Fatalf("unexpected notifications: %#v", notifier)
	}
	if notifier.failed[0] != "bob" {
		t.Fatalf("unexpected failed match value: %q", notifier.failed[0])
	}
}

func TestProcessBatchMatchValuePlaceholder(t *testing.T) {
	t.Parallel()

	upserter := &scriptedUpserter{errs: []error{
		&domain.UpsertError{Kind: domain.KindMissingField, Value: "U"},
		&domain.UpsertError{Kind: domain.KindMissingField, Value: "E"},
	}}
	batch := app.NewProcessBatch(upserter, nil, "U")

	outcomes, err := batch.Execute(context.Background(), []app.Record{
		{"E": "a@x.com"},
		{"U": ""},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for i, outcome := range outcomes {
		if outcome.MatchValue != app.MatchValueNotSet {
			t.Fatalf("outcome %d: expected placeholder, got %q", i, outcome.MatchValue)
		}
	}
}

func TestProcessBatchAbortsOnFatalError(t *testing.T) {
	t.Parallel()

	upserter := &scriptedUpserter{errs: []error{
		nil,
		domain.ErrAmbiguousMatch,
		nil,
	}}
	batch := app.NewProcessBatch(upserter, nil, "U")

	outcomes, err := batch.Execute(context.Background(), []app.Record{
		{"U": "alice"},
		{"U": "bob"},
		{"U": "carol"},
	})
	if err != domain.ErrAmbiguousMatch {
		t.Fatalf("expected ErrAmbiguousMatch, got %v", err)
	}

	// The batch stops at the fatal record; earlier outcomes are kept.
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if upserter.calls != 2 {
		t.Fatalf("expected processing to stop, got %d calls", upserter.calls)
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	t.Parallel()

	batch := app.NewProcessBatch(&scriptedUpserter{}, nil, "U")

	outcomes, err := batch.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(outcomes))
	}
}
