package store_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hrygo/modbot/internal/store"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	s := store.New(db, store.SQLite)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEntityTreeCascadeDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.CreateEntityTree(ctx, nil,
		[]store.MessageEntity{{Type: "bold", Offset: 0, Length: 4}},
		[]store.Button{{Row: 0, Col: 0, Label: "Go", Kind: store.ButtonURL, Target: "https://example.com"}},
	)
	require.NoError(t, err)

	entities, buttons, err := s.LoadEntityTree(ctx, id)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	require.Len(t, buttons, 1)

	require.NoError(t, s.DeleteEntityTree(ctx, nil, id))

	entities, buttons, err = s.LoadEntityTree(ctx, id)
	require.NoError(t, err)
	require.Empty(t, entities)
	require.Empty(t, buttons)
}

func TestNoteLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	entityID, err := s.CreateEntityTree(ctx, nil, []store.MessageEntity{{Type: "italic", Offset: 0, Length: 2}}, nil)
	require.NoError(t, err)

	note := &store.Note{ChatID: 1, Name: "rules", Text: "hi", MediaKind: store.MediaText, EntityID: &entityID}
	require.NoError(t, s.SaveNote(ctx, nil, note))

	got, err := s.GetNote(ctx, 1, "rules")
	require.NoError(t, err)
	require.Equal(t, "hi", got.Text)

	deletedEntityID, err := s.DeleteNote(ctx, nil, 1, "rules")
	require.NoError(t, err)
	require.NotNil(t, deletedEntityID)
	require.Equal(t, entityID, *deletedEntityID)

	_, err = s.GetNote(ctx, 1, "rules")
	require.Error(t, err)
}

func TestFederationCyclePrevention(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a, err := s.CreateFederation(ctx, nil, 1, "alpha")
	require.NoError(t, err)
	b, err := s.CreateFederation(ctx, nil, 2, "beta")
	require.NoError(t, err)

	require.NoError(t, s.Subscribe(ctx, nil, a.ID, b.ID))
	err = s.Subscribe(ctx, nil, b.ID, a.ID)
	require.ErrorIs(t, err, store.ErrFederationCycle)

	err = s.Subscribe(ctx, nil, a.ID, a.ID)
	require.ErrorIs(t, err, store.ErrFederationCycle)
}

func TestBlocklistHandleUniqueness(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.CreateBlocklist(ctx, nil, &store.Blocklist{ChatID: 1, Action: store.ActionBan, Handle: "shared"})
	require.NoError(t, err)

	_, err = s.CreateBlocklist(ctx, nil, &store.Blocklist{ChatID: 2, Action: store.ActionBan, Handle: "shared"})
	require.ErrorIs(t, err, store.ErrHandleTaken)
}

func TestWarnCountAndClear(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		_, err := s.AddWarn(ctx, nil, &store.Warn{ChatID: 1, UserID: 2, Reason: "spam"})
		require.NoError(t, err)
	}
	n, err := s.CountWarns(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.NoError(t, s.ClearWarns(ctx, nil, 1, 2))
	n, err = s.CountWarns(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
