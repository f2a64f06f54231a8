// Package columns resolves logical fields such as "order status" against the
// header spellings real exports use.
//
// Resolve is a pure function over a header list and candidate names; the
// candidate vocabularies live in an embedded YAML table that an operator can
// extend without touching extraction code.
package columns
