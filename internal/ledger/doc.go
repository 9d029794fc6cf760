// Package ledger persists per-run and per-entry pipeline outcomes in SQLite
// so partial failures stay inspectable after the process exits. A file lock
// keeps concurrent runs from sharing one ledger.
package ledger
