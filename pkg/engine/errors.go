package engine

import (
	"fmt"
	"strings"
)

// ValidationError reports the required fields missing from a
// submission. It is recoverable; the caller corrects the submission
// and retries.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf(
		"validation failed: missing or invalid fields: %s",
		strings.Join(e.Fields, ", "),
	)
}

// InvalidInputError reports that an operation was attempted on a
// record that cannot support it, e.g. repair derivation on a test
// without a result.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// DuplicateRepairError reports that a repair record already exists for
// the test. The caller should route to the existing repair instead.
type DuplicateRepairError struct {
	TestID   uint
	RepairID uint
}

func (e *DuplicateRepairError) Error() string {
	return fmt.Sprintf(
		"repair record %d already exists for test record %d",
		e.RepairID, e.TestID,
	)
}
