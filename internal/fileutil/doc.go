// Package fileutil holds filesystem primitives: verified copies, atomic
// writes, lock-error classification and timestamped unique names.
package fileutil
