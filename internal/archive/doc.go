// Package archive owns the durable store of processed intake files.
//
// Archived files are named <stem>__sha256_<fingerprint><ext>, so the archive
// directory alone answers whether content has been processed before. Index
// looks fingerprints up (optionally accelerated by the SQLite ledger) and
// Archiver moves a file in with copy, verify and delete semantics plus
// bounded retry on lock contention.
package archive
