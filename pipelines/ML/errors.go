package ml

import "fmt"

// InsufficientDataError reports a sampling request that cannot be satisfied
// by the rows available in one class partition.
type InsufficientDataError struct {
	Class     string
	Requested int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for class %q: requested %d, have %d", e.Class, e.Requested, e.Available)
}

// AmbiguousLabelError reports an item whose majority vote is undefined
// because every annotation value for the category is missing.
type AmbiguousLabelError struct {
	ItemID   string
	Category string
}

func (e *AmbiguousLabelError) Error() string {
	return fmt.Sprintf("ambiguous %s label for item %q: all annotation values missing", e.Category, e.ItemID)
}

// EmptyClassSetError reports a support filter that removed every class.
type EmptyClassSetError struct {
	Category   string
	MinSupport int
}

func (e *EmptyClassSetError) Error() string {
	return fmt.Sprintf("no %s class meets minimum support %d", e.Category, e.MinSupport)
}

// InsufficientClassSizeError reports a class too small to place at least one
// item in both the train and test subsets.
type InsufficientClassSizeError struct {
	Label int
	Size  int
}

func (e *InsufficientClassSizeError) Error() string {
	return fmt.Sprintf("class %d has %d members, need at least 2 to stratify", e.Label, e.Size)
}

// SchemaError reports a required column that is missing or malformed in an
// input table.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation on column %q: %s", e.Column, e.Reason)
}

// TrainerFailure wraps any error raised by the external classifier trainer.
// The pipeline surfaces it verbatim and never interprets it.
type TrainerFailure struct {
	Op  string
	Err error
}

func (e *TrainerFailure) Error() string {
	return fmt.Sprintf("trainer %s failed: %v", e.Op, e.Err)
}

func (e *TrainerFailure) Unwrap() error {
	return e.Err
}
