package models

// BulkItemStatus classifies the outcome of one item in a bulk operation.
type BulkItemStatus string

const (
	BulkItemSuccess  BulkItemStatus = "success"
	BulkItemError    BulkItemStatus = "error"
	BulkItemConflict BulkItemStatus = "conflict"
)

// BulkItemResult reports the outcome of a single bulk item in input order.
type BulkItemResult struct {
	Index        int                `json:"index"`
	CourseID     string             `json:"course_id,omitempty"`
	FacultyID    string             `json:"faculty_id,omitempty"`
	StudentID    string             `json:"student_id,omitempty"`
	EnrollmentID string             `json:"enrollment_id,omitempty"`
	Status       BulkItemStatus     `json:"status"`
	Reason       string             `json:"reason,omitempty"`
	Conflicts    []ScheduleConflict `json:"conflicts,omitempty"`
}

// BulkSummary aggregates item outcomes.
type BulkSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Errors     int `json:"errors"`
	Conflicts  int `json:"conflicts"`
}

// BulkReport is the structured response of every bulk operation.
type BulkReport struct {
	Results []BulkItemResult `json:"results"`
	Summary BulkSummary      `json:"summary"`
}

// Summarize recomputes the summary from the item results.
func (r *BulkReport) Summarize() {
	summary := BulkSummary{Total: len(r.Results)}
	for _, item := range r.Results {
		switch item.Status {
		case BulkItemSuccess:
			summary.Successful++
		case BulkItemConflict:
			summary.Conflicts++
		default:
			summary.Errors++
		}
	}
	r.Summary = summary
}
