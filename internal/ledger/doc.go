// Package ledger persists archive entries and run history in SQLite.
//
// The archive directory stays the source of truth for "has this content been
// processed": every archive entry in the ledger can be rebuilt from archive
// file names (see ReplaceArchive), and callers treat a ledger miss as "look at
// the directory". Run and file-event rows are history only and feed the
// `history` command.
package ledger
