package session

import (
	"context"
	"errors"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/ports"
)

// FanOut returns a driver forwarding every callback to each of drivers, in order.
// All drivers are called even if one fails; errors are joined.
func FanOut(drivers ...ports.SessionDriver) ports.SessionDriver {
	var live fanOut
	for _, d := range drivers {
		if d != nil {
			live = append(live, d)
		}
	}
	if len(live) == 1 {
		return live[0]
	}
	return live
}

type fanOut []ports.SessionDriver

func (f fanOut) UpdateBriefing(ctx context.Context, sessionID string, b domain.Briefing) error {
	var errs []error
	for _, d := range f {
		errs = append(errs, d.UpdateBriefing(ctx, sessionID, b))
	}
	return errors.Join(errs...)
}

func (f fanOut) Speak(ctx context.Context, sessionID string, text string) error {
	var errs []error
	for _, d := range f {
		errs = append(errs, d.Speak(ctx, sessionID, text))
	}
	return errors.Join(errs...)
}

func (f fanOut) Terminate(ctx context.Context, sessionID string) error {
	var errs []error
	for _, d := range f {
		errs = append(errs, d.Terminate(ctx, sessionID))
	}
	return errors.Join(errs...)
}
