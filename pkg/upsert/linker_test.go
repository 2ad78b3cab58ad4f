package upsert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
)

// seedUnits creates entities for the given source identifiers and
// returns the identifier index a linker run needs.
func seedUnits(t *testing.T, fake *fakeKB, names ...string) map[string]kb.EntityID {
	t.Helper()

	index := make(map[string]kb.EntityID, len(names))
	for _, name := range names {
		e := kb.NewEntity()
		e.Label = name
		id, err := fake.Create(context.Background(), e)
		require.NoError(t, err)
		index[name] = id
	}
	return index
}

func newTestLinker(t *testing.T, client kb.Client, index map[string]kb.EntityID, opts ...LinkerOption) *Linker {
	t.Helper()

	l, err := NewLinker(client, index, testReference, opts...)
	require.NoError(t, err)
	l.policy = fastRetry()
	return l
}

func TestLinkerGroupsPairsBySubject(t *testing.T) {
	fake := newFakeKB()
	index := seedUnits(t, fake, "Cambrian", "Ordovician", "Paleozoic")
	linker := newTestLinker(t, fake, index)

	rels := []Relationship{
		{Subject: "Cambrian", Property: "P10", Object: "Paleozoic"},
		{Subject: "Ordovician", Property: "P10", Object: "Paleozoic"},
	}

	report, err := linker.Run(context.Background(), rels)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.Updated)

	cambrian := fake.entity(index["Cambrian"])
	require.Len(t, cambrian.Statements("P10"), 1)
	assert.Equal(t, kb.ItemValue{ID: index["Paleozoic"]}, cambrian.Statements("P10")[0].Value)
}

func TestLinkerCollapsesMultipleObjects(t *testing.T) {
	fake := newFakeKB()
	index := seedUnits(t, fake, "Paleozoic", "Cambrian", "Ordovician", "Silurian")
	linker := newTestLinker(t, fake, index)

	// Three pairs sharing a subject collapse into one write with three
	// object statements
	rels := []Relationship{
		{Subject: "Paleozoic", Property: "P11", Object: "Cambrian"},
		{Subject: "Paleozoic", Property: "P11", Object: "Ordovician"},
		{Subject: "Paleozoic", Property: "P11", Object: "Silurian"},
	}

	report, err := linker.Run(context.Background(), rels)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)

	subject := fake.entity(index["Paleozoic"])
	stmts := subject.Statements("P11")
	require.Len(t, stmts, 3)
	assert.Equal(t, kb.ItemValue{ID: index["Cambrian"]}, stmts[0].Value)
	assert.Equal(t, kb.ItemValue{ID: index["Ordovician"]}, stmts[1].Value)
	assert.Equal(t, kb.ItemValue{ID: index["Silurian"]}, stmts[2].Value)
}

func TestLinkerReplacesPriorStatements(t *testing.T) {
	fake := newFakeKB()
	index := seedUnits(t, fake, "Cambrian", "Paleozoic", "Phanerozoic")

	// Pre-existing containment statement points at the wrong parent
	stale := fake.entity(index["Cambrian"])
	stale.AddStatement(kb.Statement{Property: "P10", Value: kb.ItemValue{ID: index["Phanerozoic"]}})
	_, err := fake.Save(context.Background(), stale, "seed")
	require.NoError(t, err)

	linker := newTestLinker(t, fake, index)
	_, err = linker.Run(context.Background(), []Relationship{
		{Subject: "Cambrian", Property: "P10", Object: "Paleozoic"},
	})
	require.NoError(t, err)

	refreshed := fake.entity(index["Cambrian"])
	stmts := refreshed.Statements("P10")
	require.Len(t, stmts, 1)
	assert.Equal(t, kb.ItemValue{ID: index["Paleozoic"]}, stmts[0].Value)
}

func TestLinkerProvenance(t *testing.T) {
	fake := newFakeKB()
	index := seedUnits(t, fake, "Cambrian", "Paleozoic")
	linker := newTestLinker(t, fake, index)

	_, err := linker.Run(context.Background(), []Relationship{
		{Subject: "Cambrian", Property: "P10", Object: "Paleozoic"},
	})
	require.NoError(t, err)

	stmts := fake.entity(index["Cambrian"]).Statements("P10")
	require.Len(t, stmts, 1)
	require.NotNil(t, stmts[0].Reference)
	assert.Equal(t, testReference, *stmts[0].Reference)
}

func TestLinkerUnresolvedSubject(t *testing.T) {
	fake := newFakeKB()
	index := seedUnits(t, fake, "Paleozoic")
	linker := newTestLinker(t, fake, index)

	report, err := linker.Run(context.Background(), []Relationship{
		{Subject: "Hadean", Property: "P10", Object: "Paleozoic"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Succeeded)
	require.Len(t, report.Errors, 1)
	assert.True(t, errors.IsUnresolvedReference(report.Errors[0].Err))
}

func TestLinkerUnresolvedObject(t *testing.T) {
	fake := newFakeKB()
	index := seedUnits(t, fake, "Cambrian")
	linker := newTestLinker(t, fake, index)

	report, err := linker.Run(context.Background(), []Relationship{
		{Subject: "Cambrian", Property: "P10", Object: "Hadean"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.True(t, errors.IsUnresolvedReference(report.Errors[0].Err))

	// The subject is left untouched when any object fails to resolve
	assert.Empty(t, fake.entity(index["Cambrian"]).Statements("P10"))
}

func TestLinkerConfirmations(t *testing.T) {
	fake := newFakeKB()
	index := seedUnits(t, fake, "Cambrian", "Paleozoic")

	var actions []string
	linker := newTestLinker(t, fake, index, WithLinkConfirm(func(action, label string, _ kb.EntityID) {
		actions = append(actions, action+" "+label)
	}))

	_, err := linker.Run(context.Background(), []Relationship{
		{Subject: "Cambrian", Property: "P10", Object: "Paleozoic"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"LINKED Cambrian"}, actions)
}

func TestLinkerValidation(t *testing.T) {
	fake := newFakeKB()
	index := map[string]kb.EntityID{"Cambrian": "Q1"}

	_, err := NewLinker(nil, index, testReference)
	require.Error(t, err)

	_, err = NewLinker(fake, nil, testReference)
	require.Error(t, err)

	_, err = NewLinker(fake, index, kb.Reference{})
	require.Error(t, err)

	_, err = NewLinker(fake, index, testReference, WithLinkSummary(""))
	require.Error(t, err)
}

func TestGroupRelationshipsDeterministic(t *testing.T) {
	rels := []Relationship{
		{Subject: "b", Property: "P2", Object: "x"},
		{Subject: "a", Property: "P1", Object: "y"},
		{Subject: "a", Property: "P1", Object: "z"},
		{Subject: "a", Property: "P2", Object: "x"},
	}

	groups := groupRelationships(rels)
	require.Len(t, groups, 3)
	assert.Equal(t, "a", groups[0].subject)
	assert.Equal(t, kb.PropertyID("P1"), groups[0].property)
	assert.Equal(t, []string{"y", "z"}, groups[0].objects)
	assert.Equal(t, "a", groups[1].subject)
	assert.Equal(t, kb.PropertyID("P2"), groups[1].property)
	assert.Equal(t, "b", groups[2].subject)
}
