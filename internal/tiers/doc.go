// Package tiers reconciles an edited set of support tiers with the set the
// server holds.
//
// Reconciliation has two halves:
//
//   - Diff is pure. It compares the baseline (server state when the edit
//     session opened) with the edited set and yields a Plan of creates,
//     updates and deletes. Tiers without an ID are always creates.
//   - Reconciler.Apply issues the plan against the API, one call at a time.
//
// # Ordering
//
// The API refuses to leave a petition without support tiers and refuses a
// fourth tier. Apply therefore runs updates first (cardinality unchanged),
// then deletes, then creates. When a delete is refused because it would
// remove the last tier, one pending create is issued first and the delete
// is retried once. The petition keeps at least one tier at every step and
// never exceeds three.
//
// A failure aborts the remaining plan. Nothing is rolled back; the Report
// returned alongside the error records which steps were applied.
package tiers
