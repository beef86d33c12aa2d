// Package delegate implements subtask delegation for LLM agent hosts.
//
// A host application exposes a "delegate subtask" capability to its agents.
// Invoking it spawns one or more child sessions, registers a result-reporting
// tool (and optionally an error-reporting tool) on each, and waits for every
// child to settle: report success, actively report an error, or finish a
// model turn without calling any tool (a "dangling" turn). Dangling children
// are urged, failed, or left paused depending on configuration.
//
// Parallel fan-out derives independent work items from the request parameters,
// a named list parameter, or an externally supplied list, runs them under a
// bounded concurrency limit, and aggregates their outcomes under one of three
// result strategies.
//
// The package owns only the orchestration logic. Session creation, message
// transport, and tool-call marshaling belong to the hosting application and
// are consumed through the Host and SessionHandle interfaces.
package delegate
