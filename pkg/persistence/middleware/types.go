// Package middleware wraps session recorders with masking and encryption.
package middleware

import "github.com/aretw0/voiceflow/pkg/ports"

// Middleware allows wrapping a Recorder to add behavior.
type Middleware func(ports.Recorder) ports.Recorder

// Chain applies middlewares so that the first one sees records first.
func Chain(rec ports.Recorder, mws ...Middleware) ports.Recorder {
	for i := len(mws) - 1; i >= 0; i-- {
		rec = mws[i](rec)
	}
	return rec
}
