package models

import "time"

// MaxTextLength is the upper bound for todo text, counted after trimming.
const MaxTextLength = 500

type Todo struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Tags      []string   `json:"tags"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TodoFilter narrows a listing. DueBefore is an inclusive ceiling and drops
// todos without a due date; Tags requires every listed tag to be present.
type TodoFilter struct {
	DueBefore *time.Time
	Tags      []string
}

// TodoPatch is a partial update: nil pointer means "no change".
// DueDateSet distinguishes "clear the due date" (true, DueDate nil)
// from "leave it alone" (false).
type TodoPatch struct {
	Text       *string
	Completed  *bool
	DueDate    *time.Time
	DueDateSet bool
	Tags       *[]string
}

func (p TodoPatch) IsEmpty() bool {
	return p.Text == nil && p.Completed == nil && !p.DueDateSet && p.Tags == nil
}

type HealthResponse struct {
	Status     string `json:"status"`
	TodosCount int    `json:"todos_count"`
}
