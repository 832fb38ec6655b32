package voiceflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/voiceflow"
	"github.com/aretw0/voiceflow/internal/travel"
	"github.com/aretw0/voiceflow/pkg/adapters/memory"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresFlow(t *testing.T) {
	_, err := voiceflow.New()
	assert.ErrorIs(t, err, voiceflow.ErrNoFlow)
}

func TestNew_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "travel.yaml")
	require.NoError(t, os.WriteFile(path, travel.Document(), 0o644))

	eng, err := voiceflow.New(
		voiceflow.WithFlowFile(path),
		voiceflow.WithRegistry(travel.Registry()),
	)
	require.NoError(t, err)
	assert.NotEmpty(t, eng.Name)
	assert.Equal(t, "start", eng.Flow().InitialNode())
}

func TestNew_CompileErrors(t *testing.T) {
	cfg, err := travel.Config()
	require.NoError(t, err)

	// Without the travel handlers the flow does not compile.
	_, err = voiceflow.New(voiceflow.WithFlowConfig(cfg))
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.NotEmpty(t, cfgErr.Problems)
}

func TestEngine_TravelBooking(t *testing.T) {
	cfg, err := travel.Config()
	require.NoError(t, err)

	driver := memory.NewDriver()
	rec := memory.NewRecorder()
	metrics := observability.NewMetrics("travel")

	var starts int
	eng, err := voiceflow.New(
		voiceflow.WithFlowConfig(cfg),
		voiceflow.WithRegistry(travel.Registry()),
		voiceflow.WithDriver(driver),
		voiceflow.WithRecorder(rec),
		voiceflow.WithMetrics(metrics),
		voiceflow.WithLifecycleHooks(domain.LifecycleHooks{
			OnSessionStart: func(context.Context, *domain.SessionEvent) { starts++ },
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = eng.Start(ctx, "trip")
	require.NoError(t, err)

	calls := []struct {
		fn   string
		args map[string]any
	}{
		{"choose_beach", nil},
		{"select_destination", map[string]any{"destination": "Maui"}},
		{"record_dates", map[string]any{"check_in": "2026-07-01", "check_out": "2026-07-08"}},
		{"record_activities", map[string]any{"activities": []any{"snorkeling"}}},
		{"confirm_booking", nil},
		{"end", nil},
		{"end_conversation", map[string]any{"summary": "Maui in July"}},
	}
	var out domain.Outcome
	for _, c := range calls {
		out, err = eng.Call(ctx, "trip", c.fn, c.args)
		require.NoError(t, err, c.fn)
	}
	assert.Equal(t, domain.OutcomeTerminated, out.Kind)
	assert.True(t, driver.Terminated("trip"))
	assert.Equal(t, 1, starts)

	record, err := rec.Load(ctx, "trip")
	require.NoError(t, err)
	assert.Equal(t, "Maui", record.Results["destination"])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NodeVisits.WithLabelValues("verify_itinerary")))
}
