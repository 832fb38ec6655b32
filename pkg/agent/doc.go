/*
Package agent implements a text-mode session driver.

An Agent plays the role of the real-time pipeline of a voice bot: it keeps the
transcript of each conversation, asks a tool-calling ports.Model for the next
assistant turn using the functions of the current briefing, hands any text to a
Speaker and routes tool calls back into the session hub. Outcomes are fed to the
model as tool results until it answers without calling a function.

Because the hub calls back into the driver while a call is in progress, the
Agent must be registered as the hub's driver (or be part of a fan-out) before
conversations start:

	a := agent.New(model, speaker)
	hub := session.NewHub(f, session.WithDriver(a))
	a.Bind(hub)
*/
package agent
