package user

import (
	"context"
	"errors"

	domain "github.com/mohammadpnp/user-upsert/internal/domain/user"
)

// MatchValueNotSet identifies records whose match field is missing or empty
// in the per-record outcomes.
const MatchValueNotSet = "not set"

// Outcome is the per-record result of a batch run. Error is empty on
// success.
type Outcome struct {
	MatchValue string `json:"match_value"`
	Error      string `json:"error,omitempty"`
}

// Notifier receives one signal per processed record.
type Notifier interface {
	UpsertSucceeded(ctx context.Context, matchValue string)
	UpsertFailed(ctx context.Context, matchValue, reason string)
}

type userUpserter interface {
	Execute(ctx context.Context, record Record) error
}

// ProcessBatch runs the upsert engine over a sequence of records, isolating
// record-scoped failures so one bad record never stops the rest.
type ProcessBatch interface {
	Execute(ctx context.Context, records []Record) ([]Outcome, error)
}

type processBatch struct {
	upsert    userUpserter
	notifier  Notifier
	matchName string
}

func NewProcessBatch(upsert userUpserter, notifier Notifier, matchExternalName string) ProcessBatch {
	return &processBatch{
		upsert:    upsert,
		notifier:  notifier,
		matchName: matchExternalName,
	}
}

// Execute preserves record order in the returned outcomes. Record-scoped
// upsert errors become Failure outcomes; fatal errors (ambiguous match,
// unknown schema field) abort the remaining batch and are returned together
// with the outcomes collected so far.
func (uc *processBatch) Execute(ctx context.Context, records []Record) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(records))

	for _, record := range records {
		matchValue := uc.matchValue(record)

		if err := uc.upsert.Execute(ctx, record); err != nil {
			var upsertErr *domain.UpsertError
			if !errors.As(err, &upsertErr) {
				return outcomes, err
			}

			outcomes = append(outcomes, Outcome{MatchValue: matchValue, Error: upsertErr.Error()})
			if uc.notifier != nil {
				uc.notifier.UpsertFailed(ctx, matchValue, upsertErr.Error())
			}
			continue
		}

		outcomes = append(outcomes, Outcome{MatchValue: matchValue})
		if uc.notifier != nil {
			uc.notifier.UpsertSucceeded(ctx, matchValue)
		}
	}

	return outcomes, nil
}

func (uc *processBatch) matchValue(record Record) string {
	if value := record[uc.matchName]; value != "" {
		return value
	}
	return MatchValueNotSet
}
