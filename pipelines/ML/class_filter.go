package ml

import "fmt"

// Category names accepted by the class filter
const (
	CategoryContent  = "content_label"
	CategoryPhrasing = "phrasing_label"
)

// ClassFilter restricts a multi-class label column to classes with adequate
// support and assigns dense zero-based labels. Dense labels are assigned in
// ascending original-code order, so the mapping does not depend on row order.
type ClassFilter struct {
	Category   string
	MinSupport int
}

// NewClassFilter creates a filter over the given category column
func NewClassFilter(category string, minSupport int) *ClassFilter {
	if category == "" {
		category = CategoryContent
	}
	return &ClassFilter{Category: category, MinSupport: minSupport}
}

// Apply filters the aggregated items and returns the survivors (with
// DenseLabel set) together with the label mapping. Input row order is
// preserved among survivors.
func (f *ClassFilter) Apply(items []AggregatedItem) ([]AggregatedItem, *LabelMapping, error) {
	if f.Category != CategoryContent && f.Category != CategoryPhrasing {
		return nil, nil, fmt.Errorf("unknown category %q", f.Category)
	}

	counts := make(map[int]int)
	for _, item := range items {
		counts[f.code(item)]++
	}

	var retained []int
	for code, count := range counts {
		if count >= f.MinSupport {
			retained = append(retained, code)
		}
	}
	if len(retained) == 0 {
		return nil, nil, &EmptyClassSetError{Category: f.Category, MinSupport: f.MinSupport}
	}

	mapping := NewLabelMapping(f.Category, retained)

	filtered := make([]AggregatedItem, 0, len(items))
	for _, item := range items {
		dense, ok := mapping.Dense(f.code(item))
		if !ok {
			continue
		}
		item.DenseLabel = dense
		filtered = append(filtered, item)
	}

	return filtered, mapping, nil
}

func (f *ClassFilter) code(item AggregatedItem) int {
	if f.Category == CategoryPhrasing {
		return item.PhrasingLabel
	}
	return item.ContentLabel
}
