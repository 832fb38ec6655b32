/*
Package flow loads, validates and compiles conversation flows.

A flow document (YAML or JSON) is decoded into a domain.FlowConfig, then Compile
checks it against a handler registry and produces an immutable *Flow: every
function has its argument validator and handler resolved, and every pre- and
post-action is bound to an Executor. A *Flow is shared read-only by all sessions.

	cfg, err := flow.Load("travel.yaml")
	if err != nil {
	    return err
	}
	f, err := flow.Compile(cfg, reg, flow.WithLogger(logger))
	if err != nil {
	    var cerr *domain.ConfigurationError
	    errors.As(err, &cerr) // every problem found, not just the first
	}
*/
package flow
