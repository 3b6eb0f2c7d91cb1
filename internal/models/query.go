package models

import "fmt"

// QueryRequest is the JSON form of a query description: an ordered list of fragments.
type QueryRequest struct {
	Fragments []FragmentInput `json:"fragments"`
}

// FragmentInput is either a raw fragment (Raw set) or a predicate (Field and Op set).
// A predicate value is Value for scalars or Values for collections.
type FragmentInput struct {
	Raw    string `json:"raw,omitempty"`
	Field  string `json:"field,omitempty"`
	Op     string `json:"op,omitempty"`
	Value  any    `json:"value,omitempty"`
	Values []any  `json:"values,omitempty"`
}

// IsRaw reports whether f is a raw text fragment.
func (f *FragmentInput) IsRaw() bool {
	return f.Field == "" && f.Op == ""
}

// Validate checks that every fragment is either raw text or a complete predicate.
func (q *QueryRequest) Validate() error {
	if len(q.Fragments) == 0 {
		return fmt.Errorf("query must have at least one fragment")
	}
	for i := range q.Fragments {
		f := &q.Fragments[i]
		if f.IsRaw() {
			if f.Raw == "" {
				return fmt.Errorf("fragment %d: raw text cannot be empty", i)
			}
			if f.Value != nil || f.Values != nil {
				return fmt.Errorf("fragment %d: raw fragment cannot carry a value", i)
			}
			continue
		}
		if f.Raw != "" {
			return fmt.Errorf("fragment %d: cannot mix raw text with a predicate", i)
		}
		if f.Field == "" {
			return fmt.Errorf("fragment %d: field is required", i)
		}
		if f.Op == "" {
			return fmt.Errorf("fragment %d: op is required", i)
		}
		if f.Value != nil && f.Values != nil {
			return fmt.Errorf("fragment %d: set either value or values, not both", i)
		}
		if f.Value == nil && f.Values == nil {
			return fmt.Errorf("fragment %d: value is required", i)
		}
	}
	return nil
}
