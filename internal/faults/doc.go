// Package faults defines the value-carrying errors that flow between the intake,
// extraction, archive, and orchestration layers.
//
// Every failure carries a Kind so the run orchestrator can decide whether it is
// fatal for the whole run or only for the file being processed, and a short
// operator-facing message that ends up in the run log next to the file's
// fingerprint.
package faults
