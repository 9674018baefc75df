/*
Package log provides structured logging built on zerolog: a global
Logger initialized once via Init, plus context-logger helpers
(WithComponent, WithNodeID, WithRoleKind, WithShowID, WithShardID) that
attach a field and return a child logger rather than mutating global
state.

Initializing:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

Component loggers:

	dispatchLog := log.WithComponent("dispatch")
	dispatchLog.Info().Str("role", string(kind)).Msg("role opened")

Fatal exits the process (os.Exit via zerolog's Fatal level); reserve it for
errors that make continuing meaningless, never for a single failed
request.
*/
package log
