package session_test

import (
	"context"
	"testing"

	"github.com/aretw0/voiceflow/pkg/adapters/memory"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingDriver struct{ memory.Driver }

func (failingDriver) Speak(context.Context, string, string) error { return assert.AnError }

func TestFanOut(t *testing.T) {
	a, b := memory.NewDriver(), &failingDriver{}
	d := session.FanOut(a, nil, b)
	ctx := context.Background()

	require.NoError(t, d.UpdateBriefing(ctx, "s", domain.Briefing{NodeID: "start"}))
	err := d.Speak(ctx, "s", "hello")
	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, d.Terminate(ctx, "s"))

	assert.Equal(t, []string{"hello"}, a.Spoken("s"), "every driver is called even when one fails")
	assert.True(t, a.Terminated("s"))
	assert.True(t, b.Terminated("s"))
}

func TestFanOut_Single(t *testing.T) {
	a := memory.NewDriver()
	assert.Same(t, a, session.FanOut(nil, a))
}
