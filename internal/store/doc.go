// Package store keeps the client's local state in SQLite: the current login
// session and a journal of support-tier reconciliation runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Steps are deleted with their run
//
// Runs are listed newest first; steps keep the order they were executed in.
package store
