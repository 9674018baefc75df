/*
Package types defines the data model shared by the node's management
components: role identity and process topology, wire request/response
payloads, log entries, and the coded error values other packages wrap with
fmt.Errorf("...: %w", err).

Nothing in this package holds a lock or a goroutine; it exists so
pkg/role, pkg/dispatch, pkg/show, pkg/logstore, and pkg/transport share one
vocabulary instead of redefining it independently.
*/
package types
