/*
Package session implements the console's session lifecycle.

A session is one conversation with the evaluator: its ID is the context the
evaluator keeps variables under, and its history is the list of finished
entries shown to the user. The Manager serializes submissions per session
(in process, and across replicas with a DistributedLocker), runs the
evaluation, records the outcome in the HistoryStore and regenerates the
session ID when the history is cleared.
*/
package session
