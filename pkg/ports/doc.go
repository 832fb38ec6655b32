/*
Package ports defines the interfaces between the voiceflow engine and the outside world.

These interfaces decouple the flow engine from the pipeline that drives it and from
the infrastructure behind it.

# Key Interfaces

  - Sessions: the inbound side; what a session driver calls (start, function call, end).
  - SessionDriver: the outbound side; how the engine re-briefs the model, speaks and hangs up.
  - Model: a tool-calling language model used by the text-mode driver.
  - Recorder: where finished sessions are written.
  - DistributedLocker: serializes one session's events across replicas.
*/
package ports
