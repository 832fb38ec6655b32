/*
Package session hosts the live conversation sessions of one flow.

A Hub owns one flow manager per session, serializes each session's events
(locally, and across replicas when a distributed locker is configured), applies
the handler-error policy, and writes a record of every finished session.
*/
package session
