package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// LoginRequest carries the login params
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned on a successful login
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// MessageResponse acknowledges a mutation
type MessageResponse struct {
	Message string `json:"message"`
}

// SavedResponse acknowledges a save and returns the stored id, which the
// server assigns when the shell sent none.
type SavedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// TaskIDRequest addresses one task
type TaskIDRequest struct {
	TaskID string `json:"taskId" binding:"required"`
}

// TaskFilters are the listing filters. The *RF/*RT pairs bound a date
// range by calendar day.
type TaskFilters struct {
	Q             string       `json:"q"`
	Categories    []string     `json:"categories"`
	Statuses      []string     `json:"statuses"`
	CreatedRF     string       `json:"createdRF"`
	CreatedRT     string       `json:"createdRT"`
	UpdatedRF     string       `json:"updatedRF"`
	UpdatedRT     string       `json:"updatedRT"`
	DeadlineRF    string       `json:"deadlineRF"`
	DeadlineRT    string       `json:"deadlineRT"`
	FinishedRF    string       `json:"finishedRF"`
	FinishedRT    string       `json:"finishedRT"`
	HasFinishDate OptionalBool `json:"hasFinishDate"`
	GroupBy       string       `json:"groupBy"`
	SortBy        string       `json:"sortBy"`
}

// PaginationRequest is limit/offset paging. Zero values mean the defaults.
type PaginationRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// TasksSummaryRequest carries the load_tasks_summary params
type TasksSummaryRequest struct {
	Filters    TaskFilters       `json:"filters"`
	Pagination PaginationRequest `json:"pagination"`
}

// TaskPayload is a task as the shell submits it
type TaskPayload struct {
	ID          string   `json:"id"`
	Title       *string  `json:"title"`
	From        *string  `json:"from"`
	Status      *string  `json:"status"`
	Priority    any      `json:"priority"`
	Deadline    *string  `json:"deadline"`
	FinishDate  *string  `json:"finishDate"`
	Description *string  `json:"description"`
	Notes       *string  `json:"notes"`
	Categories  []string `json:"categories"`
	Attachments []any    `json:"attachments"`
	CreatedAt   *string  `json:"createdAt"`
	UpdatedAt   *string  `json:"updatedAt"`
}

// SaveTaskRequest carries the save_task params
type SaveTaskRequest struct {
	Task *TaskPayload `json:"task" binding:"required"`
}

// MilestonePayload is a milestone as the shell submits it
type MilestonePayload struct {
	ID         string  `json:"id"`
	Title      *string `json:"title"`
	Deadline   *string `json:"deadline"`
	FinishDate *string `json:"finishDate"`
	Status     *string `json:"status"`
	ParentID   *string `json:"parentId"`
	Notes      any     `json:"notes"`
	UpdatedAt  *string `json:"updatedAt"`
}

// SaveMilestoneRequest carries the save_milestone params
type SaveMilestoneRequest struct {
	TaskID    string            `json:"taskId" binding:"required"`
	Milestone *MilestonePayload `json:"milestone" binding:"required"`
}

// MilestoneRefRequest addresses one milestone of a task
type MilestoneRefRequest struct {
	TaskID      string `json:"taskId" binding:"required"`
	MilestoneID string `json:"milestoneId" binding:"required"`
}

// DistinctRequest carries the get_distinct_* params
type DistinctRequest struct {
	OnlyActive OptionalBool `json:"onlyActive"`
}

// TaskCountsRequest carries the get_task_counts params
type TaskCountsRequest struct {
	Since DayCount `json:"since"`
}

// DeleteStatusRequest carries the delete_status_values params
type DeleteStatusRequest struct {
	StatusDesc string `json:"statusDesc" binding:"required"`
}

// DeleteOriginRequest carries the delete_from_values params
type DeleteOriginRequest struct {
	OriginDesc string `json:"originDesc" binding:"required"`
}

var (
	errNotBool     = errors.New("must be true or false")
	errNotDayCount = errors.New("must be a non-negative whole number of days")
)

// OptionalBool is a boolean the shell may send as a JSON boolean or as the
// strings "true"/"false". Absent, null and "" leave it unset.
type OptionalBool struct {
	Valid bool
	Value bool
}

func (b *OptionalBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = OptionalBool{}
		return nil
	}

	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = OptionalBool{Valid: true, Value: v}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errNotBool
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		*b = OptionalBool{}
	case "true":
		*b = OptionalBool{Valid: true, Value: true}
	case "false":
		*b = OptionalBool{Valid: true, Value: false}
	default:
		return errNotBool
	}
	return nil
}

// Ptr returns the value as a pointer, nil when unset.
func (b OptionalBool) Ptr() *bool {
	if !b.Valid {
		return nil
	}
	v := b.Value
	return &v
}

// DayCount is a number of days sent as a JSON number or a digit string.
// Absent, null and "" leave it unset.
type DayCount struct {
	Valid bool
	Days  int
}

func (d *DayCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = DayCount{}
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		*d = DayCount{}
		return nil
	}

	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return errNotDayCount
	}
	*d = DayCount{Valid: true, Days: n}
	return nil
}

// Ptr returns the count as a pointer, nil when unset.
func (d DayCount) Ptr() *int {
	if !d.Valid {
		return nil
	}
	n := d.Days
	return &n
}
