package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/yukikurage/tasktide/internal/dto"
	"github.com/yukikurage/tasktide/internal/repository"
	"github.com/yukikurage/tasktide/internal/services"
	"github.com/yukikurage/tasktide/internal/utils"
)

// toTaskFilter validates the listing filters and pagination.
func toTaskFilter(f dto.TaskFilters, p dto.PaginationRequest) (repository.TaskFilter, utils.Pagination, error) {
	group, err := repository.ParseGroupKey(f.GroupBy)
	if err != nil {
		return repository.TaskFilter{}, utils.Pagination{}, err
	}
	sortKey, err := repository.ParseSortKey(f.SortBy)
	if err != nil {
		return repository.TaskFilter{}, utils.Pagination{}, err
	}

	filter := repository.TaskFilter{
		Query:      f.Q,
		Categories: f.Categories,
		Statuses:   f.Statuses,
		Created:    repository.DateRange{From: f.CreatedRF, To: f.CreatedRT},
		Updated:    repository.DateRange{From: f.UpdatedRF, To: f.UpdatedRT},
		Deadline:   repository.DateRange{From: f.DeadlineRF, To: f.DeadlineRT},
		Finished:   repository.DateRange{From: f.FinishedRF, To: f.FinishedRT},
		GroupBy:    group,
		SortBy:     sortKey,

		HasFinishDate: f.HasFinishDate.Ptr(),
	}

	page := utils.NormalizePagination(utils.Pagination{Limit: p.Limit, Offset: p.Offset})
	return filter, page, nil
}

// toTaskInput converts a submitted task to the service input
func toTaskInput(t dto.TaskPayload) services.TaskInput {
	return services.TaskInput{
		ID:          t.ID,
		Title:       t.Title,
		From:        deref(t.From),
		Status:      deref(t.Status),
		Priority:    priorityText(t.Priority),
		Deadline:    t.Deadline,
		FinishDate:  t.FinishDate,
		Description: t.Description,
		Notes:       t.Notes,
		Categories:  t.Categories,
		Attachments: t.Attachments,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// toMilestoneInput converts a submitted milestone to the service input
func toMilestoneInput(m dto.MilestonePayload) services.MilestoneInput {
	return services.MilestoneInput{
		ID:         m.ID,
		Title:      m.Title,
		Deadline:   m.Deadline,
		FinishDate: m.FinishDate,
		Status:     deref(m.Status),
		ParentID:   m.ParentID,
		Notes:      m.Notes,
		UpdatedAt:  m.UpdatedAt,
	}
}

// priorityText accepts whatever the shell sent as priority.
func priorityText(v any) *string {
	var s string
	switch p := v.(type) {
	case nil:
		return nil
	case string:
		s = p
	case float64:
		s = strconv.FormatFloat(p, 'f', -1, 64)
	case json.Number:
		s = p.String()
	default:
		s = fmt.Sprint(p)
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
