package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cp := Checkpoint{
		Module: "auth",
		Step:   "iterate_through_tasks",
		Phase:  "building",
		TaskID: "t3",
		Event:  EventTaskCompleted,
		At:     time.Now(),
	}
	require.NoError(t, store.Save(ctx, cp))

	got, err := store.Load(ctx, "auth")
	require.NoError(t, err)
	assert.Equal(t, cp, *got)
}

func TestMemoryStoreSaveReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Checkpoint{Module: "auth", Step: "draft_specification", Event: EventStepCompleted}))
	require.NoError(t, store.Save(ctx, Checkpoint{Module: "auth", Step: "identify_components", Event: EventPhaseTransition}))

	got, err := store.Load(ctx, "auth")
	require.NoError(t, err)
	assert.Equal(t, "identify_components", got.Step)
	assert.Equal(t, EventPhaseTransition, got.Event)
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Load(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Checkpoint{Module: "auth", Step: "complete", Event: EventStepCompleted}))
	require.NoError(t, store.Delete(ctx, "auth"))

	_, err := store.Load(ctx, "auth")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing checkpoint is fine.
	assert.NoError(t, store.Delete(ctx, "auth"))
}

func TestMemoryStoreRejectsBlankModule(t *testing.T) {
	store := NewMemoryStore()
	assert.Error(t, store.Save(context.Background(), Checkpoint{Step: "complete"}))
}
