package domain

import "errors"

// ErrNotFound is returned by store lookups that match no row. Reconciliation
// treats it as "keep looking"; handlers treat it as an internal failure since
// Ensure runs before any read.
var ErrNotFound = errors.New("not found")
