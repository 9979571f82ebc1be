package ml

// MajorityAggregator collapses per-annotator rows into one AggregatedItem
// per distinct item identifier. For each category the most frequent value
// wins; ties break to the value encountered first in input order. The
// tie-break is deliberately deterministic so that re-running aggregation on
// the same input always yields the same labels.
type MajorityAggregator struct{}

// NewMajorityAggregator creates a new aggregator
func NewMajorityAggregator() *MajorityAggregator {
	return &MajorityAggregator{}
}

// Aggregate votes per item and joins the result with the Item table.
// Identifiers without a matching Item are dropped (inner join). An item
// whose category values are all missing has no defined majority and fails
// with AmbiguousLabelError.
func (a *MajorityAggregator) Aggregate(annotations []Annotation, items []Item) ([]AggregatedItem, error) {
	if len(annotations) == 0 {
		return nil, &InsufficientDataError{Class: "annotations", Requested: 1, Available: 0}
	}

	itemsByID := make(map[string]Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	// Group annotations per identifier, preserving first-seen order of both
	// the identifiers and the values within each identifier.
	var order []string
	grouped := make(map[string][]Annotation)
	for _, ann := range annotations {
		if _, seen := grouped[ann.ItemID]; !seen {
			order = append(order, ann.ItemID)
		}
		grouped[ann.ItemID] = append(grouped[ann.ItemID], ann)
	}

	aggregated := make([]AggregatedItem, 0, len(order))
	for _, id := range order {
		group := grouped[id]

		var contentValues, phrasingValues []int
		for _, ann := range group {
			if ann.Content != nil {
				contentValues = append(contentValues, *ann.Content)
			}
			if ann.Phrasing != nil {
				phrasingValues = append(phrasingValues, *ann.Phrasing)
			}
		}

		contentLabel, ok := majorityVote(contentValues)
		if !ok {
			return nil, &AmbiguousLabelError{ItemID: id, Category: "content"}
		}
		phrasingLabel, ok := majorityVote(phrasingValues)
		if !ok {
			return nil, &AmbiguousLabelError{ItemID: id, Category: "phrasing"}
		}

		item, exists := itemsByID[id]
		if !exists {
			continue
		}

		aggregated = append(aggregated, AggregatedItem{
			ItemID:        id,
			Text:          item.Text,
			Sexist:        item.Sexist,
			ContentLabel:  contentLabel,
			PhrasingLabel: phrasingLabel,
		})
	}

	return aggregated, nil
}

// majorityVote returns the most frequent value; on a tie the value seen
// first in input order wins. ok is false when values is empty.
func majorityVote(values []int) (winner int, ok bool) {
	if len(values) == 0 {
		return 0, false
	}

	counts := make(map[int]int, len(values))
	var firstSeen []int
	for _, v := range values {
		if counts[v] == 0 {
			firstSeen = append(firstSeen, v)
		}
		counts[v]++
	}

	bestCount := 0
	for _, v := range firstSeen {
		if counts[v] > bestCount {
			winner = v
			bestCount = counts[v]
		}
	}
	return winner, true
}
