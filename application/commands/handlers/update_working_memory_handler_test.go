package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/application/commands"
	"engram/domain/core/validators"
	"engram/domain/core/valueobjects"
)

func TestUpdateWorkingMemory_BoostsAttention(t *testing.T) {
	wm := &fakeWorkingMemory{}
	handler := NewUpdateWorkingMemoryHandler(wm, validators.NewOwnerValidator())

	err := handler.Handle(context.Background(), &commands.UpdateWorkingMemoryCommand{
		UserID:   "user-1",
		Topics:   []string{"deploys"},
		Entities: []string{"staging"},
	})
	require.NoError(t, err)

	require.Len(t, wm.updates, 1)
	assert.Equal(t, "user-1", wm.updates[0].userID)
	assert.Equal(t, []string{"deploys"}, wm.updates[0].topics)
	assert.Equal(t, []string{"staging"}, wm.updates[0].entities)
}

func TestUpdateWorkingMemory_EmptyUpdateRejected(t *testing.T) {
	wm := &fakeWorkingMemory{}
	handler := NewUpdateWorkingMemoryHandler(wm, validators.NewOwnerValidator())

	err := handler.Handle(context.Background(), &commands.UpdateWorkingMemoryCommand{UserID: "user-1"})
	require.Error(t, err)
	assert.Empty(t, wm.updates)
}

func TestUpdateWorkingMemory_ReservedOwnerRejected(t *testing.T) {
	wm := &fakeWorkingMemory{}
	handler := NewUpdateWorkingMemoryHandler(wm, validators.NewOwnerValidator())

	err := handler.Handle(context.Background(), &commands.UpdateWorkingMemoryCommand{
		UserID: valueobjects.SystemOwnerID,
		Topics: []string{"deploys"},
	})
	require.Error(t, err)
	assert.Empty(t, wm.updates)
}
