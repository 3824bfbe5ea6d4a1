/*
Package log provides structured logging for the coordinator using
zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  Global Logger (zerolog.Logger, set by log.Init)          │
	│       │                                                    │
	│  Configuration: Level, JSONOutput, Output                 │
	│       │                                                    │
	│  Context Loggers:                                         │
	│    WithComponent("router")                                │
	│    WithMemberURI("10.0.0.4:7000")                          │
	│    WithClusterID("0")                                     │
	│    WithResource("MAP", "sessions")                        │
	└────────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})
	log.Info("coordinator starting")

	clusterLog := log.WithClusterID("0")
	clusterLog.Info().Str("leader", addr).Msg("leadership changed")

	resLog := log.WithResource("MAP", "sessions")
	resLog.Debug().Msg("applied put")

# Design

Global Logger Pattern: one package-level Logger, initialized once at
startup, accessible from every package without threading it through
constructors. Context Logger Pattern: child loggers carry fixed fields
(cluster id, member uri, resource identity) so call sites don't repeat
them. Structured fields over string interpolation throughout, so logs
stay parseable by aggregation tools downstream.

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
