package upsert

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
	"github.com/geokb/geokb/pkg/logging"
)

// Relationship is one directed pair extracted from a source graph:
// subject and object are source identifiers, not yet entity IDs.
type Relationship struct {
	Subject  string
	Property kb.PropertyID
	Object   string
}

// Linker attaches already-extracted pairwise relationships to subject
// entities as a secondary pass. Pairs group by (subject, property); each
// group replaces the subject's prior statements of that property with
// one statement per object. Every subject and object must resolve
// through the prebuilt index; an unresolved reference is an error, not
// a silent drop.
type Linker struct {
	client    kb.Client
	index     map[string]kb.EntityID
	reference kb.Reference
	summary   string
	confirm   Confirm
	policy    retryPolicy
	logger    *zerolog.Logger
}

// LinkerOption configures a Linker.
type LinkerOption func(*Linker) error

// NewLinker creates a linker over a prebuilt identifier-to-entity index.
func NewLinker(client kb.Client, index map[string]kb.EntityID, reference kb.Reference, opts ...LinkerOption) (*Linker, error) {
	if client == nil {
		return nil, errors.NewValidationError("client", nil, "knowledgebase client is required")
	}
	if len(index) == 0 {
		return nil, errors.NewValidationError("index", nil, "identifier index is required")
	}
	if reference.Property == "" || reference.Dataset == "" {
		return nil, errors.NewValidationError("reference", reference, "provenance reference is required")
	}

	l := &Linker{
		client:    client,
		index:     index,
		reference: reference,
		summary:   "batch relationship link from source graph",
		policy:    defaultRetryPolicy(),
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// WithLinkSummary sets the editor-supplied change summary for writes.
func WithLinkSummary(summary string) LinkerOption {
	return func(l *Linker) error {
		if summary == "" {
			return errors.NewValidationError("summary", summary, "change summary cannot be empty")
		}
		l.summary = summary
		return nil
	}
}

// WithLinkConfirm sets the per-subject confirmation sink.
func WithLinkConfirm(confirm Confirm) LinkerOption {
	return func(l *Linker) error {
		l.confirm = confirm
		return nil
	}
}

// WithLinkLogger sets the logger.
func WithLinkLogger(logger *zerolog.Logger) LinkerOption {
	return func(l *Linker) error {
		l.logger = logger
		return nil
	}
}

// linkGroup is one (subject, property) group with its object set.
type linkGroup struct {
	subject  string
	property kb.PropertyID
	objects  []string
}

// Run performs the secondary pass. One report entry per (subject,
// property) group.
func (l *Linker) Run(ctx context.Context, rels []Relationship) (*Report, error) {
	groups := groupRelationships(rels)
	report := newReport()

	l.logger.Info().
		Str("run_id", report.RunID).
		Int("pairs", len(rels)).
		Int("groups", len(groups)).
		Msg("Starting link run")

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return report.finish(), errors.ErrCanceled
		}

		report.Attempted++
		if err := l.linkOne(ctx, g); err != nil {
			report.Errors = append(report.Errors, RecordError{Key: g.subject, Err: err})
			if errors.IsRecordFailure(err) {
				report.Skipped++
				l.logger.Warn().Str("subject", g.subject).Err(err).Msg("Link group skipped")
			} else {
				report.Failed++
				l.logger.Error().Str("subject", g.subject).Err(err).Msg("Link group failed")
			}
			continue
		}
		report.Succeeded++
		report.Updated++
	}

	report.finish()
	l.logger.Info().
		Str("run_id", report.RunID).
		Int("succeeded", report.Succeeded).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Link run complete")

	return report, nil
}

// linkOne replaces the subject's statements for one property with the
// group's object set.
func (l *Linker) linkOne(ctx context.Context, g linkGroup) error {
	subjectID, ok := l.index[g.subject]
	if !ok {
		return &errors.UnresolvedReferenceError{Kind: "relationship subject", Value: g.subject}
	}

	stmts := make([]kb.Statement, 0, len(g.objects))
	ref := l.reference
	for _, obj := range g.objects {
		objectID, ok := l.index[obj]
		if !ok {
			return &errors.UnresolvedReferenceError{Kind: "relationship object", Value: obj}
		}
		stmts = append(stmts, kb.Statement{
			Property:  g.property,
			Value:     kb.ItemValue{ID: objectID},
			Reference: &ref,
		})
	}

	var entity *kb.Entity
	err := l.policy.retry(ctx, func() error {
		var gerr error
		entity, gerr = l.client.Get(ctx, subjectID)
		return gerr
	})
	if err != nil {
		return err
	}

	entity.ReplaceStatements(g.property, stmts)

	err = l.policy.retry(ctx, func() error {
		_, serr := l.client.Save(ctx, entity, l.summary)
		return serr
	})
	if err != nil {
		return err
	}

	if l.confirm != nil {
		l.confirm("LINKED", entity.Label, subjectID)
	}
	return nil
}

// groupRelationships collapses pairs into (subject, property) groups,
// preserving object order within a group and sorting groups for
// deterministic runs.
func groupRelationships(rels []Relationship) []linkGroup {
	type groupKey struct {
		subject  string
		property kb.PropertyID
	}

	index := make(map[groupKey]int)
	var groups []linkGroup
	for _, rel := range rels {
		key := groupKey{rel.Subject, rel.Property}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, linkGroup{subject: rel.Subject, property: rel.Property})
		}
		groups[i].objects = append(groups[i].objects, rel.Object)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].subject != groups[j].subject {
			return groups[i].subject < groups[j].subject
		}
		return groups[i].property < groups[j].property
	})
	return groups
}
