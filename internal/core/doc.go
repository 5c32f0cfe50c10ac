// Package core provides the payroll reconciliation logic.
//
// It compares two payroll exports (the previous period, "old", and the
// current period, "new"), pairs employees by Employee Number and reports how
// each net salary moved. The package is independent of any transport layer
// and is shared by the web server and the payrecon CLI.
//
// # Pipeline
//
// [Engine.Run] is the whole computation:
//
//  1. Load both documents into [table.Table] values (xlsx or csv)
//  2. [Validate] both headers against [RequiredColumns]
//  3. [Reconcile] joins the tables and derives Increase/Decrease and Difference
//  4. [Shape] projects the report columns and renames qualified ones
//  5. [table.Serialize] encodes the report in the requested format
//
// Any failing stage aborts the run; a partial report is never produced.
// Salary arithmetic is exact decimal arithmetic, never floating point.
//
// # Service
//
// [Service] wraps the engine for the web host. It bounds concurrency with a
// [Limiter], stages each run's inputs and report in its own directory, and
// records every run through an [AuditStore].
//
// # Error Handling
//
// Failures are typed ([ValidationError], [TypeError], [EmptyJoinError],
// [table.FormatError]) and mapped to user-facing messages with codes by
// [MapError].
package core
