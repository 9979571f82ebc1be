package ml

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Annotation is one crowdworker's judgment on one item. Category codes are
// optional because raw exports carry empty cells for skipped judgments.
type Annotation struct {
	ItemID   string `json:"_id"`
	Content  *int   `json:"content,omitempty"`
	Phrasing *int   `json:"phrasing,omitempty"`
}

// Item is one unit of text with its binary ground-truth label.
type Item struct {
	ID     string `json:"_id"`
	Text   string `json:"text"`
	Sexist bool   `json:"sexist"`
}

// AggregatedItem is the per-item result of majority voting over annotations,
// joined with the matching Item.
type AggregatedItem struct {
	ItemID        string `json:"_id"`
	Text          string `json:"text"`
	Sexist        bool   `json:"sexist"`
	ContentLabel  int    `json:"content_label"`
	PhrasingLabel int    `json:"phrasing_label"`
	DenseLabel    int    `json:"dense_label"`
}

// LabeledDataset pairs texts with dense integer labels in [0, NumClasses).
type LabeledDataset struct {
	Texts      []string `json:"texts"`
	Labels     []int    `json:"labels"`
	NumClasses int      `json:"num_classes"`
}

// Len returns the number of examples in the dataset
func (d *LabeledDataset) Len() int {
	return len(d.Texts)
}

// Validate checks internal consistency of the dataset
func (d *LabeledDataset) Validate() error {
	if len(d.Texts) == 0 {
		return fmt.Errorf("dataset is empty")
	}
	if len(d.Texts) != len(d.Labels) {
		return fmt.Errorf("text/label length mismatch: %d vs %d", len(d.Texts), len(d.Labels))
	}
	if d.NumClasses < 2 {
		return fmt.Errorf("dataset needs at least 2 classes, has %d", d.NumClasses)
	}
	for i, label := range d.Labels {
		if label < 0 || label >= d.NumClasses {
			return fmt.Errorf("label %d at row %d outside [0, %d)", label, i, d.NumClasses)
		}
	}
	return nil
}

// ClassCounts returns the number of examples per dense label
func (d *LabeledDataset) ClassCounts() map[int]int {
	counts := make(map[int]int)
	for _, label := range d.Labels {
		counts[label]++
	}
	return counts
}

// LabelMapping records the assignment of original category codes to dense
// labels. Dense labels are assigned in ascending original-code order, so the
// mapping is fully determined by the retained class set.
type LabelMapping struct {
	Category string      `json:"category"`
	Forward  map[int]int `json:"forward"` // original code -> dense label
	Classes  []int       `json:"classes"` // retained original codes, ascending
}

// NewLabelMapping builds a mapping from the retained original codes
func NewLabelMapping(category string, retained []int) *LabelMapping {
	classes := append([]int(nil), retained...)
	sort.Ints(classes)

	forward := make(map[int]int, len(classes))
	for dense, code := range classes {
		forward[code] = dense
	}

	return &LabelMapping{
		Category: category,
		Forward:  forward,
		Classes:  classes,
	}
}

// Dense returns the dense label for an original code
func (m *LabelMapping) Dense(code int) (int, bool) {
	dense, ok := m.Forward[code]
	return dense, ok
}

// Original inverts a dense label back to the original category code.
// Downstream inference needs this to report predictions in source codes.
func (m *LabelMapping) Original(dense int) (int, bool) {
	if dense < 0 || dense >= len(m.Classes) {
		return 0, false
	}
	return m.Classes[dense], true
}

// NumClasses returns the number of retained classes
func (m *LabelMapping) NumClasses() int {
	return len(m.Classes)
}

// ItemsFromRows converts tabular rows into typed Items, validating the
// required columns up front.
func ItemsFromRows(rows []map[string]any) ([]Item, error) {
	items := make([]Item, 0, len(rows))
	for i, row := range rows {
		id, err := stringCell(row, "_id", i)
		if err != nil {
			return nil, err
		}
		text, err := stringCell(row, "text", i)
		if err != nil {
			return nil, err
		}
		sexist, err := boolCell(row, "sexist", i)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{ID: id, Text: text, Sexist: sexist})
	}
	return items, nil
}

// ItemsToRows converts Items back to tabular rows in the source schema
func ItemsToRows(items []Item) ([]string, []map[string]any) {
	columns := []string{"_id", "text", "sexist"}
	rows := make([]map[string]any, len(items))
	for i, item := range items {
		sexist := "False"
		if item.Sexist {
			sexist = "True"
		}
		rows[i] = map[string]any{
			"_id":    item.ID,
			"text":   item.Text,
			"sexist": sexist,
		}
	}
	return columns, rows
}

// AnnotationsFromRows converts tabular rows into typed Annotations. Empty
// category cells become nil pointers; non-integer cells are schema errors.
func AnnotationsFromRows(rows []map[string]any) ([]Annotation, error) {
	annotations := make([]Annotation, 0, len(rows))
	for i, row := range rows {
		id, err := stringCell(row, "_id", i)
		if err != nil {
			return nil, err
		}
		content, err := optionalIntCell(row, "content", i)
		if err != nil {
			return nil, err
		}
		phrasing, err := optionalIntCell(row, "phrasing", i)
		if err != nil {
			return nil, err
		}
		annotations = append(annotations, Annotation{ItemID: id, Content: content, Phrasing: phrasing})
	}
	return annotations, nil
}

// AggregatedToRows converts filtered aggregated items to the prepared-output
// schema: content_label carries the dense label of the filtered category,
// phrasing_label keeps the original code.
func AggregatedToRows(items []AggregatedItem) ([]string, []map[string]any) {
	columns := []string{"_id", "text", "content_label", "phrasing_label"}
	rows := make([]map[string]any, len(items))
	for i, item := range items {
		rows[i] = map[string]any{
			"_id":            item.ItemID,
			"text":           item.Text,
			"content_label":  strconv.Itoa(item.DenseLabel),
			"phrasing_label": strconv.Itoa(item.PhrasingLabel),
		}
	}
	return columns, rows
}

// DatasetFromPrepared reads a labeled dataset from prepared-output rows,
// taking the dense label from content_label.
func DatasetFromPrepared(rows []map[string]any) (*LabeledDataset, error) {
	relabeled := make([]map[string]any, len(rows))
	for i, row := range rows {
		relabeled[i] = map[string]any{
			"text":  row["text"],
			"label": row["content_label"],
		}
	}
	return DatasetFromRows(relabeled)
}

// DatasetFromItems builds the binary task dataset (sexist=false -> 0,
// sexist=true -> 1).
func DatasetFromItems(items []Item) *LabeledDataset {
	ds := &LabeledDataset{
		Texts:      make([]string, len(items)),
		Labels:     make([]int, len(items)),
		NumClasses: 2,
	}
	for i, item := range items {
		ds.Texts[i] = item.Text
		if item.Sexist {
			ds.Labels[i] = 1
		}
	}
	return ds
}

// DatasetFromAggregated builds the multi-class dataset from filtered,
// remapped aggregated items.
func DatasetFromAggregated(items []AggregatedItem, numClasses int) *LabeledDataset {
	ds := &LabeledDataset{
		Texts:      make([]string, len(items)),
		Labels:     make([]int, len(items)),
		NumClasses: numClasses,
	}
	for i, item := range items {
		ds.Texts[i] = item.Text
		ds.Labels[i] = item.DenseLabel
	}
	return ds
}

// DatasetToRows converts a labeled dataset to tabular rows
func DatasetToRows(ds *LabeledDataset) ([]string, []map[string]any) {
	columns := []string{"text", "label"}
	rows := make([]map[string]any, ds.Len())
	for i := range ds.Texts {
		rows[i] = map[string]any{
			"text":  ds.Texts[i],
			"label": strconv.Itoa(ds.Labels[i]),
		}
	}
	return columns, rows
}

// DatasetFromRows reads a labeled dataset back from tabular rows
func DatasetFromRows(rows []map[string]any) (*LabeledDataset, error) {
	ds := &LabeledDataset{
		Texts:  make([]string, 0, len(rows)),
		Labels: make([]int, 0, len(rows)),
	}
	maxLabel := 0
	for i, row := range rows {
		text, err := stringCell(row, "text", i)
		if err != nil {
			return nil, err
		}
		label, err := intCell(row, "label", i)
		if err != nil {
			return nil, err
		}
		if label < 0 {
			return nil, &SchemaError{Column: "label", Reason: fmt.Sprintf("negative label %d at row %d", label, i)}
		}
		if label > maxLabel {
			maxLabel = label
		}
		ds.Texts = append(ds.Texts, text)
		ds.Labels = append(ds.Labels, label)
	}
	ds.NumClasses = maxLabel + 1
	if ds.NumClasses < 2 {
		ds.NumClasses = 2
	}
	return ds, nil
}

func stringCell(row map[string]any, column string, rowIndex int) (string, error) {
	value, exists := row[column]
	if !exists {
		return "", &SchemaError{Column: column, Reason: fmt.Sprintf("missing at row %d", rowIndex)}
	}
	s, ok := value.(string)
	if !ok {
		return "", &SchemaError{Column: column, Reason: fmt.Sprintf("not a string at row %d", rowIndex)}
	}
	if strings.TrimSpace(s) == "" {
		return "", &SchemaError{Column: column, Reason: fmt.Sprintf("empty at row %d", rowIndex)}
	}
	return s, nil
}

func boolCell(row map[string]any, column string, rowIndex int) (bool, error) {
	s, err := stringCell(row, column, rowIndex)
	if err != nil {
		return false, err
	}
	switch s {
	case "True":
		return true, nil
	case "False":
		return false, nil
	default:
		return false, &SchemaError{Column: column, Reason: fmt.Sprintf("expected True/False, got %q at row %d", s, rowIndex)}
	}
}

func intCell(row map[string]any, column string, rowIndex int) (int, error) {
	s, err := stringCell(row, column, rowIndex)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(s))
	if convErr != nil {
		return 0, &SchemaError{Column: column, Reason: fmt.Sprintf("not an integer at row %d: %q", rowIndex, s)}
	}
	return n, nil
}

func optionalIntCell(row map[string]any, column string, rowIndex int) (*int, error) {
	value, exists := row[column]
	if !exists {
		return nil, &SchemaError{Column: column, Reason: fmt.Sprintf("missing at row %d", rowIndex)}
	}
	s, ok := value.(string)
	if !ok {
		return nil, &SchemaError{Column: column, Reason: fmt.Sprintf("not a string at row %d", rowIndex)}
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(s))
	if convErr != nil {
		return nil, &SchemaError{Column: column, Reason: fmt.Sprintf("not an integer at row %d: %q", rowIndex, s)}
	}
	return &n, nil
}
