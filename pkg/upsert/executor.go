package upsert

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
	"github.com/geokb/geokb/pkg/logging"
)

// Describe produces the textual fields for a record. The executor
// applies them with overwrite semantics.
type Describe func(SourceRecord) TextFields

// Confirm receives one per-record confirmation for operator visibility.
type Confirm func(action string, label string, id kb.EntityID)

// Executor runs the upsert procedure over an unordered batch of source
// records. Validation failures skip the record; transport failures are
// retried with bounded backoff, then fail the record. Either way the
// batch continues and the final report carries the tally.
type Executor struct {
	client    kb.Client
	resolver  *Resolver
	mapper    *Mapper
	describe  Describe
	reference kb.Reference
	summary   string
	confirm   Confirm
	policy    retryPolicy
	logger    *zerolog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor) error

// NewExecutor creates an executor. The provenance reference is fixed
// for the whole run and attached to every statement written.
func NewExecutor(client kb.Client, key IdentityKey, mapper *Mapper, describe Describe, reference kb.Reference, opts ...ExecutorOption) (*Executor, error) {
	if client == nil {
		return nil, errors.NewValidationError("client", nil, "knowledgebase client is required")
	}
	if mapper == nil {
		return nil, errors.NewValidationError("mapper", nil, "field mapper is required")
	}
	if describe == nil {
		return nil, errors.NewValidationError("describe", nil, "describe function is required")
	}
	if reference.Property == "" || reference.Dataset == "" {
		return nil, errors.NewValidationError("reference", reference, "provenance reference is required")
	}

	ex := &Executor{
		client:    client,
		resolver:  NewResolver(client, key),
		mapper:    mapper,
		describe:  describe,
		reference: reference,
		summary:   "batch upsert from source dataset",
		policy:    defaultRetryPolicy(),
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		if err := opt(ex); err != nil {
			return nil, err
		}
	}
	return ex, nil
}

// WithSummary sets the editor-supplied change summary for writes.
func WithSummary(summary string) ExecutorOption {
	return func(ex *Executor) error {
		if summary == "" {
			return errors.NewValidationError("summary", summary, "change summary cannot be empty")
		}
		ex.summary = summary
		return nil
	}
}

// WithConfirm sets the per-record confirmation sink.
func WithConfirm(confirm Confirm) ExecutorOption {
	return func(ex *Executor) error {
		ex.confirm = confirm
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) ExecutorOption {
	return func(ex *Executor) error {
		ex.logger = logger
		return nil
	}
}

// WithRetries overrides the bounded retry count for transport failures.
func WithRetries(maxRetries uint64) ExecutorOption {
	return func(ex *Executor) error {
		ex.policy.maxRetries = maxRetries
		return nil
	}
}

// Run processes the batch. The source collection has no ordering
// guarantee; records are taken as given. The returned error is non-nil
// only for run-level failures (context cancellation), never for
// per-record outcomes.
func (ex *Executor) Run(ctx context.Context, records []SourceRecord) (*Report, error) {
	report := newReport()

	ex.logger.Info().
		Str("run_id", report.RunID).
		Int("records", len(records)).
		Str("dataset", ex.reference.Dataset.String()).
		Msg("Starting upsert run")

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report.finish(), errors.ErrCanceled
		}

		report.Attempted++
		key, created, err := ex.upsertOne(ctx, rec)
		if err == nil {
			report.Succeeded++
			if created {
				report.Created++
			} else {
				report.Updated++
			}
			continue
		}

		report.Errors = append(report.Errors, RecordError{Key: key, Err: err})
		if errors.IsRecordFailure(err) {
			report.Skipped++
			ex.logger.Warn().Str("key", key).Err(err).Msg("Record skipped")
		} else {
			report.Failed++
			ex.logger.Error().Str("key", key).Err(err).Msg("Record failed")
		}
	}

	report.finish()
	ex.logger.Info().
		Str("run_id", report.RunID).
		Int("succeeded", report.Succeeded).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Upsert run complete")

	return report, nil
}

// upsertOne performs the procedure for a single record and reports the
// identity key it used and whether a new entity was created.
func (ex *Executor) upsertOne(ctx context.Context, rec SourceRecord) (key string, created bool, err error) {
	// 1. Resolve identity.
	var id kb.EntityID
	var found bool
	err = ex.policy.retry(ctx, func() error {
		var rerr error
		key, id, found, rerr = ex.resolver.Resolve(ctx, rec)
		return rerr
	})
	if err != nil {
		return key, false, err
	}

	// 2. Load the existing entity or instantiate a new one.
	var entity *kb.Entity
	if found {
		err = ex.policy.retry(ctx, func() error {
			var gerr error
			entity, gerr = ex.client.Get(ctx, id)
			return gerr
		})
		if err != nil {
			return key, false, err
		}
	} else {
		entity = kb.NewEntity()
	}

	// 3. Overwrite the textual fields.
	text := ex.describe(rec)
	entity.Label = text.Label
	entity.Description = text.Description
	entity.SetAliases(text.Aliases...)

	// 4. Build the statement set, attaching the run's provenance
	// reference to every statement.
	stmts, err := ex.mapper.Map(rec)
	if err != nil {
		return key, false, err
	}
	ref := ex.reference
	byProperty := make(map[kb.PropertyID][]kb.Statement)
	for _, s := range stmts {
		s.Reference = &ref
		byProperty[s.Property] = append(byProperty[s.Property], s)
	}

	// 5. Clear-then-write every property in the mapping scope, even
	// when a property produced no statements this run.
	for _, p := range ex.mapper.Properties() {
		entity.ReplaceStatements(p, byProperty[p])
	}

	// 6. Persist and confirm.
	action := "UPDATED"
	if found {
		err = ex.policy.retry(ctx, func() error {
			_, serr := ex.client.Save(ctx, entity, ex.summary)
			return serr
		})
	} else {
		action = "CREATED"
		err = ex.policy.retry(ctx, func() error {
			var cerr error
			id, cerr = ex.client.Create(ctx, entity)
			return cerr
		})
	}
	if err != nil {
		return key, false, err
	}

	if ex.confirm != nil {
		ex.confirm(action, entity.Label, id)
	}
	return key, !found, nil
}
