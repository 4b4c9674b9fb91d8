package models

// ScheduleConflict records one overlapping slot pair between a candidate
// schedule and an existing course taught by the same faculty member.
type ScheduleConflict struct {
	CourseID      string   `json:"course_id"`
	CourseName    string   `json:"course_name"`
	ExistingSlot  TimeSlot `json:"existing_slot"`
	CandidateSlot TimeSlot `json:"candidate_slot"`
}

// ScheduleConflictError is returned when an assignment collides with the
// faculty member's existing teaching load.
type ScheduleConflictError struct {
	Message   string             `json:"message"`
	Conflicts []ScheduleConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
