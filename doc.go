/*
Package voiceflow is a conversation flow engine for voice assistants.

A flow is a graph of nodes. Each node briefs the language model with role and
task messages and exposes the functions the model may call while the node is
active. A call is validated against its declared arguments, runs its
registered handler, merges the result into the session and moves the session
to the function's target node. Nodes may declare pre- and post-actions such as
speaking a fixed phrase (tts_say) or ending the call (end_conversation).

The engine never talks to a model or a speech stack directly. It calls back
into a ports.SessionDriver, so the same flow can run behind the HTTP/WebSocket
server, the MCP server or the terminal chat agent.

# Usage

	reg := registry.NewRegistry()
	reg.Register("record_dates", registry.Typed(recordDates))

	eng, err := voiceflow.New(
		voiceflow.WithFlowFile("travel.yaml"),
		voiceflow.WithRegistry(reg),
		voiceflow.WithDriver(driver),
	)
	if err != nil {
		log.Fatal(err)
	}

	briefing, err := eng.Start(ctx, "")
	// hand briefing.Messages and briefing.Functions to the model ...

	outcome, err := eng.Call(ctx, briefing.SessionID, "record_dates", map[string]any{
		"check_in":  "2026-07-01",
		"check_out": "2026-07-08",
	})
*/
package voiceflow
