/*
Package observability turns voiceflow lifecycle hooks into Prometheus metrics
and structured audit logs.

Both Metrics.Hooks and LogHooks return domain.LifecycleHooks values that can be
combined with domain.MergeHooks and handed to the session hub.
*/
package observability
