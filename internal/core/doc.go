// Package core provides the lead reconciliation pipeline.
//
// This package is the heart of the lead sync service, containing all domain logic
// independent of any transport, scheduler, or spreadsheet provider. It can be
// driven by the HTTP layer, the background scheduler, or tests without
// modification.
//
// # Architecture
//
// One sync cycle flows through five stages, each with a single owner:
//
//   - Column map: a declarative [ColumnMap] table assigns a fixed sheet column
//     index to every lead field. It can be overridden from YAML with
//     [LoadColumnMap].
//   - Extraction: [Extract] turns a [RawRow] into trimmed [RowFields], or
//     reports the row as skipped when its created time is empty.
//   - Normalization: [NormalizePhone] and [NormalizeDate] are pure functions
//     producing the canonical phone identity and YYYY-MM-DD start date.
//   - Resolution: [Resolver] finds or creates the owning [Customer] keyed by
//     (national number, country code).
//   - Reconciliation: [Reconciler] inserts a new [Lead] or refreshes the
//     customer status of the existing lead sharing (lead date, phone).
//
// [Orchestrator.RunCycle] drives the stages for a full block of rows over a
// single store [Session] and returns a [CycleReport] with one [Outcome] per
// row. A failing row never aborts the cycle.
//
// # Services
//
// [Service] wires the orchestrator to a [RowSource], an optional
// [CycleGuard] lock and an optional [OutcomeSink]. [Service.StartSyncScheduler]
// runs it on a fixed interval.
//
// # Error Handling
//
// Database failures surface as [*StoreError]. Technical errors are mapped to
// coded messages using [MapError]:
//
//   - DB001-DB007: Database errors (duplicates, constraints, connections)
//   - SHEET001-SHEET003: Spreadsheet source errors
//   - SYNC001-SYNC004: Cycle errors (overlap, session, cancellation)
package core
