package models

import "errors"

// ErrGroupNotFound is returned by split operations naming a group id that is
// not in the persisted grouping state.
var ErrGroupNotFound = errors.New("group not found")

// ErrMergeRequiresTwo is returned when a merge names fewer than two distinct
// identifiers.
var ErrMergeRequiresTwo = errors.New("merge requires at least two identifiers")
