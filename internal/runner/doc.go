// Package runner sequences one batch run:
//
//	Init → CleanTemp → LoadDirectory → Scan → (Recheck → Extract → Archive)* → Merge → Done
//
// Init takes the advisory run lock, opens the run log and the ledger.
// LoadDirectory failures are fatal. Every per-file failure is logged with the
// file's fingerprint and absorbed: the file stays in the intake directory, its
// per-file output is removed, and the loop moves on. A run that finds no new
// files ends at Done without merging.
package runner
