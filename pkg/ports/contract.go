package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRecorderContract runs a suite of tests to verify that a Recorder implementation
// adheres to the defined interface contract.
func RunRecorderContract(t *testing.T, rec Recorder) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	newRecord := func(id string, ended time.Time) *domain.SessionRecord {
		s := domain.NewState(id, "start")
		s.CurrentNodeID = "end"
		s.Status = domain.StatusTerminated
		s.Results["destination"] = "Maui"
		s.Results["activities"] = []string{"snorkeling"}
		s.History = append(s.History, "choose_beach", "end")
		s.Calls = []domain.CallRecord{{
			NodeID:    "end",
			Function:  "end_conversation",
			Arguments: map[string]any{"summary": "Maui in June"},
		}}
		return domain.NewSessionRecord("travel", s, ended)
	}

	t.Run("Save and Load", func(t *testing.T) {
		err := rec.Save(ctx, newRecord(sessionID, time.Now()))
		require.NoError(t, err, "Save should not return error")

		loaded, err := rec.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "end", loaded.FinalNode)
		assert.Equal(t, domain.StatusTerminated, loaded.Status)
		assert.Equal(t, "Maui", loaded.Results["destination"])
		// Persistence may normalize []string to []any, only check presence.
		assert.NotNil(t, loaded.Results["activities"])
		require.Len(t, loaded.Calls, 1)
		assert.Equal(t, "Maui in June", loaded.Calls[0].Arguments["summary"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := rec.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, rec.Save(ctx, newRecord(sessionID, time.Now())))

		require.NoError(t, rec.Delete(ctx, sessionID), "Delete should not return error")

		_, err := rec.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List Most Recent First", func(t *testing.T) {
		base := time.Now()
		var ids []string
		for i := range 3 {
			id := fmt.Sprintf("%s-%d", sessionID, i)
			ids = append(ids, id)
			require.NoError(t, rec.Save(ctx, newRecord(id, base.Add(time.Duration(i)*time.Second))))
		}
		defer func() {
			for _, id := range ids {
				_ = rec.Delete(ctx, id)
			}
		}()

		listed, err := rec.List(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(listed), 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, listed[:3])
	})
}
