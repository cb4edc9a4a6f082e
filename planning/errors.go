/*
errors.go - Centralized error types for the planning engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Infrastructural - an input source is unreachable; fatal, the run fails
     and publishes nothing
  2. Structural - a broken BOM (cycle, missing BOM for a make item); scoped
     to the offending sub-tree, the run continues
  3. Configuration - bad item master data (negative lead time, unknown lot
     policy); scoped to the item, descendants are blocked
  4. Data-quality - suspicious but plannable input; recorded as a warning,
     never blocks publication

USAGE:
  Callers distinguish "run failed, nothing published" from "run completed
  with N item-level errors" via the RunResult: a fatal error is returned
  from Run(), item-level errors ride inside the published batch.

SEE ALSO:
  - run.go: where fatal errors abort the run
  - bom.go / netting.go: where item-scoped errors originate
*/
package planning

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCatalogUnavailable is returned when the catalog source cannot be read.
	ErrCatalogUnavailable = errors.New("catalog source unavailable")

	// ErrDemandUnavailable is returned when the demand source cannot be read.
	ErrDemandUnavailable = errors.New("demand source unavailable")

	// ErrInventoryUnavailable is returned when the inventory source cannot be read.
	ErrInventoryUnavailable = errors.New("inventory source unavailable")

	// ErrRunCancelled is returned when a run is cancelled at a stage boundary.
	// The in-progress batch is discarded; nothing is published.
	ErrRunCancelled = errors.New("planning run cancelled")

	// ErrBOMCycle marks a cyclic bill-of-materials sub-tree.
	ErrBOMCycle = errors.New("bom cycle detected")

	// ErrMissingBOM marks a make item with no effective BOM lines.
	ErrMissingBOM = errors.New("make item has no bill of materials")

	// ErrMissingLeadTime marks an item with a negative lead time.
	ErrMissingLeadTime = errors.New("item lead time missing or negative")

	// ErrInvalidLotPolicy marks an unknown or misconfigured lot-sizing policy.
	ErrInvalidLotPolicy = errors.New("invalid lot-sizing policy")

	// ErrRunNotFound is returned by batch stores for an unknown run id.
	ErrRunNotFound = errors.New("run not found")
)

// =============================================================================
// ITEM ERRORS - Scoped to one item, recorded on the batch
// =============================================================================

// ErrorClass is the taxonomy bucket an item-level error falls into.
type ErrorClass string

const (
	ErrorStructural    ErrorClass = "structural"
	ErrorConfiguration ErrorClass = "configuration"
	// ErrorBlocked marks an item skipped because an ancestor failed.
	ErrorBlocked ErrorClass = "blocked-by-parent"
)

// ItemError records a per-item failure that did not abort the run.
type ItemError struct {
	ItemID ItemID
	Class  ErrorClass
	Stage  string // orchestrator stage where the error surfaced
	Detail string
	Cause  error `json:"-"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s error for item %s during %s: %s", e.Class, e.ItemID, e.Stage, e.Detail)
}

func (e ItemError) Unwrap() error { return e.Cause }

// =============================================================================
// DATA WARNINGS - Recorded, never blocking
// =============================================================================

// DataWarning flags suspicious input attached to a specific record.
type DataWarning struct {
	Code       string // e.g. "negative-available", "zero-capacity-loaded"
	ItemID     ItemID
	ResourceID ResourceID
	Bucket     Bucket
	Detail     string
}

func (w DataWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Detail)
}

// =============================================================================
// FATAL ERRORS - Abort the whole run
// =============================================================================

// FatalError wraps an infrastructural failure with the stage it hit.
type FatalError struct {
	Stage string
	Cause error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("planning run failed during %s: %v", e.Stage, e.Cause)
}

func (e *FatalError) Unwrap() error { return e.Cause }

// IsFatal reports whether an error aborts a run rather than scoping to an
// item. Cancellation counts: the batch is discarded either way.
func IsFatal(err error) bool {
	var fe *FatalError
	if errors.As(err, &fe) {
		return true
	}
	return errors.Is(err, ErrCatalogUnavailable) ||
		errors.Is(err, ErrDemandUnavailable) ||
		errors.Is(err, ErrInventoryUnavailable) ||
		errors.Is(err, ErrRunCancelled)
}
