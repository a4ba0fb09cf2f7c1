package dto

import (
	"encoding/json"
	"strconv"

	"github.com/yukikurage/tasktide/internal/models"
)

// TaskDTO represents a full task in responses. "status" and "from" carry
// the labels; "origin" keeps the lookup id. Description and notes are
// returned as stored, the *HTML fields carry the cleaned rendering.
type TaskDTO struct {
	ID          string   `json:"id"`
	Creator     string   `json:"creator"`
	Title       *string  `json:"title"`
	Origin      *int64   `json:"origin"`
	From        *string  `json:"from"`
	Priority    any      `json:"priority"`
	Deadline    *string  `json:"deadline"`
	FinishDate  *string  `json:"finishDate"`
	Status      *string  `json:"status"`
	Description *string  `json:"description"`
	Notes       *string  `json:"notes"`
	Categories  []string `json:"categories"`
	Attachments []any    `json:"attachments"`
	CreatedAt   *string  `json:"createdAt"`
	UpdatedAt   *string  `json:"updatedAt"`

	DescriptionHTML *string `json:"descriptionHtml,omitempty"`
	NotesHTML       *string `json:"notesHtml,omitempty"`
}

// TaskSummaryDTO represents a task in listing responses
type TaskSummaryDTO struct {
	ID         string   `json:"id"`
	Creator    string   `json:"creator"`
	Title      *string  `json:"title"`
	From       *string  `json:"from"`
	FromID     *int64   `json:"fromId"`
	Priority   any      `json:"priority"`
	Deadline   *string  `json:"deadline"`
	FinishDate *string  `json:"finishDate"`
	Status     *string  `json:"status"`
	Categories []string `json:"categories"`
	CreatedAt  *string  `json:"createdAt"`
	UpdatedAt  *string  `json:"updatedAt"`
}

// MilestoneDTO represents a milestone in responses. Notes are decoded JSON.
type MilestoneDTO struct {
	ID         string  `json:"id"`
	TaskID     string  `json:"taskId"`
	Title      *string `json:"title"`
	Deadline   *string `json:"deadline"`
	FinishDate *string `json:"finishDate"`
	Status     *string `json:"status"`
	ParentID   *string `json:"parentId"`
	Notes      any     `json:"notes"`
	UpdatedAt  *string `json:"updatedAt"`
}

// Conversion functions

// ToTaskDTO converts a task record to TaskDTO
func ToTaskDTO(task models.TaskRecord) TaskDTO {
	return TaskDTO{
		ID:          task.ID,
		Creator:     task.Creator,
		Title:       task.Title,
		Origin:      task.OriginID,
		From:        task.OriginLabel,
		Priority:    priorityValue(task.Priority),
		Deadline:    task.Deadline,
		FinishDate:  task.FinishDate,
		Status:      task.StatusLabel,
		Description: task.Description,
		Notes:       task.Notes,
		Categories:  models.ParseCategories(task.Categories),
		Attachments: models.ParseAttachments(task.Attachments),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// ToTaskSummaryDTOs converts listing rows to DTOs. The result is never nil.
func ToTaskSummaryDTOs(summaries []models.TaskSummary) []TaskSummaryDTO {
	out := make([]TaskSummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, TaskSummaryDTO{
			ID:         s.ID,
			Creator:    s.Creator,
			Title:      s.Title,
			From:       s.From,
			FromID:     s.FromID,
			Priority:   priorityValue(s.Priority),
			Deadline:   s.Deadline,
			FinishDate: s.FinishDate,
			Status:     s.Status,
			Categories: models.ParseCategories(s.Categories),
			CreatedAt:  s.CreatedAt,
			UpdatedAt:  s.UpdatedAt,
		})
	}
	return out
}

// ToMilestoneDTO converts a milestone record to MilestoneDTO
func ToMilestoneDTO(m models.MilestoneRecord) MilestoneDTO {
	return MilestoneDTO{
		ID:         m.ID,
		TaskID:     m.TaskID,
		Title:      m.Title,
		Deadline:   m.Deadline,
		FinishDate: m.FinishDate,
		Status:     m.StatusLabel,
		ParentID:   m.ParentID,
		Notes:      decodeNotes(m.Notes),
		UpdatedAt:  m.UpdatedAt,
	}
}

// ToMilestoneDTOs converts a list of milestone records. The result is never nil.
func ToMilestoneDTOs(records []models.MilestoneRecord) []MilestoneDTO {
	out := make([]MilestoneDTO, 0, len(records))
	for _, m := range records {
		out = append(out, ToMilestoneDTO(m))
	}
	return out
}

// priorityValue renders a stored priority as a JSON number when it is one.
func priorityValue(p *string) any {
	if p == nil {
		return nil
	}
	if i, err := strconv.ParseInt(*p, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(*p, 64); err == nil {
		return f
	}
	return *p
}

// decodeNotes returns stored milestone notes as JSON, or the raw text when
// the column does not hold JSON.
func decodeNotes(raw *string) any {
	if raw == nil || *raw == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(*raw), &v); err != nil {
		return *raw
	}
	return v
}
