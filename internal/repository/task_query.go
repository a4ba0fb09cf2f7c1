package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/tasktide/internal/utils"
)

var (
	ErrUnknownGroupKey = errors.New("unknown group key")
	ErrUnknownSortKey  = errors.New("unknown sort key")
)

// GroupKey selects the primary ordering of a task listing.
type GroupKey string

const (
	GroupNone                GroupKey = ""
	GroupPriority            GroupKey = "priority"
	GroupFrom                GroupKey = "from"
	GroupStatus              GroupKey = "status"
	GroupDeadlineYear        GroupKey = "deadlineYear"
	GroupDeadlineMonthYear   GroupKey = "deadlineMonthYear"
	GroupFinishDateYear      GroupKey = "finishDateYear"
	GroupFinishDateMonthYear GroupKey = "finishDateMonthYear"
	GroupCreatedAtYear       GroupKey = "createdAtYear"
	GroupCreatedAtMonthYear  GroupKey = "createdAtMonthYear"
)

// SortKey selects the secondary (or sole) ordering of a task listing.
type SortKey string

const (
	SortDefault   SortKey = ""
	SortDeadline  SortKey = "deadline"
	SortPriority  SortKey = "priority"
	SortFrom      SortKey = "from"
	SortUpdatedAt SortKey = "updatedAt"
)

const defaultOrder = "t.updatedAt DESC"

// emptyLast orders a nullable date column ascending with null and empty
// values at the end.
func emptyLast(col string) string {
	return fmt.Sprintf("CASE WHEN %[1]s IS NULL OR %[1]s = '' THEN 1 ELSE 0 END, %[1]s ASC", col)
}

// Year and month buckets sort the same way; bucketing is done by the shell.
var groupExpressions = map[GroupKey]string{
	GroupPriority:            "t.priority ASC",
	GroupFrom:                "o.description ASC",
	GroupStatus:              "s.description ASC",
	GroupDeadlineYear:        emptyLast("t.deadline"),
	GroupDeadlineMonthYear:   emptyLast("t.deadline"),
	GroupFinishDateYear:      emptyLast("t.finishDate"),
	GroupFinishDateMonthYear: emptyLast("t.finishDate"),
	GroupCreatedAtYear:       emptyLast("t.createdAt"),
	GroupCreatedAtMonthYear:  emptyLast("t.createdAt"),
}

var sortExpressions = map[SortKey]string{
	SortDeadline:  emptyLast("t.deadline"),
	SortPriority:  "t.priority ASC",
	SortFrom:      "o.description ASC",
	SortUpdatedAt: defaultOrder,
}

// ParseGroupKey validates a group key. Empty means no grouping.
func ParseGroupKey(s string) (GroupKey, error) {
	key := GroupKey(s)
	if key == GroupNone {
		return GroupNone, nil
	}
	if _, ok := groupExpressions[key]; !ok {
		return GroupNone, fmt.Errorf("%w: %q", ErrUnknownGroupKey, s)
	}
	return key, nil
}

// ParseSortKey validates a sort key. Empty means the default order.
func ParseSortKey(s string) (SortKey, error) {
	key := SortKey(s)
	if key == SortDefault {
		return SortDefault, nil
	}
	if _, ok := sortExpressions[key]; !ok {
		return SortDefault, fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
	return key, nil
}

// DateRange bounds a date column by calendar day. Either end may be empty.
type DateRange struct {
	From string
	To   string
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Query      string
	Categories []string
	Statuses   []string

	Created  DateRange
	Updated  DateRange
	Deadline DateRange
	Finished DateRange

	// HasFinishDate: nil = no filter, false = unfinished, true = finished.
	HasFinishDate *bool

	GroupBy GroupKey
	SortBy  SortKey
}

const taskSummarySelect = `SELECT t.id, t.creator, t.title, o.description AS "from", t.priority, t.deadline, t.finishDate,
       s.description AS status, t.categories, t.createdAt, t.updatedAt, t.origin AS fromId
FROM tasks t
LEFT JOIN status s ON t.status = s.id
LEFT JOIN origin o ON t.origin = o.id
WHERE t.creator = ?`

// BuildTaskSummaryQuery composes the listing query for owner. Every user
// value is a bound parameter; the owner is always the first one. Keys
// outside the enumerated sets are rejected.
func BuildTaskSummaryQuery(filter TaskFilter, page utils.Pagination, owner string) (string, []any, error) {
	if _, err := ParseGroupKey(string(filter.GroupBy)); err != nil {
		return "", nil, err
	}
	if _, err := ParseSortKey(string(filter.SortBy)); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString(taskSummarySelect)
	args := []any{owner}

	if filter.Query != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Query)) + "%"
		sb.WriteString(` AND (LOWER(t.title) LIKE ? ESCAPE '\' OR LOWER(o.description) LIKE ? ESCAPE '\'` +
			` OR LOWER(t.description) LIKE ? ESCAPE '\' OR LOWER(t.notes) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}

	if len(filter.Categories) > 0 {
		sb.WriteString(" AND EXISTS (SELECT 1 FROM json_each(CASE WHEN json_valid(t.categories) THEN t.categories ELSE '[]' END)")
		sb.WriteString(" WHERE json_each.value IN (" + placeholders(len(filter.Categories)) + "))")
		for _, c := range filter.Categories {
			args = append(args, c)
		}
	}

	if len(filter.Statuses) > 0 {
		sb.WriteString(" AND s.description IN (" + placeholders(len(filter.Statuses)) + ")")
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}

	args = appendDateRange(&sb, args, "t.createdAt", filter.Created)
	args = appendDateRange(&sb, args, "t.updatedAt", filter.Updated)
	args = appendDateRange(&sb, args, "t.deadline", filter.Deadline)
	args = appendDateRange(&sb, args, "t.finishDate", filter.Finished)

	if filter.HasFinishDate != nil {
		if *filter.HasFinishDate {
			sb.WriteString(" AND (t.finishDate IS NOT NULL AND t.finishDate <> '')")
		} else {
			sb.WriteString(" AND (t.finishDate IS NULL OR t.finishDate = '')")
		}
	}

	sb.WriteString(" ORDER BY " + strings.Join(orderExpressions(filter.GroupBy, filter.SortBy), ", "))

	page = utils.NormalizePagination(page)
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, page.Limit, page.Offset)

	return sb.String(), args, nil
}

// orderExpressions returns the group expression followed by the sort
// expression, dropping the latter when it repeats the former.
func orderExpressions(group GroupKey, sort SortKey) []string {
	var exprs []string
	if expr, ok := groupExpressions[group]; ok {
		exprs = append(exprs, expr)
	}
	sortExpr, ok := sortExpressions[sort]
	if !ok {
		sortExpr = defaultOrder
	}
	if len(exprs) == 0 || exprs[0] != sortExpr {
		exprs = append(exprs, sortExpr)
	}
	return exprs
}

func appendDateRange(sb *strings.Builder, args []any, col string, r DateRange) []any {
	switch {
	case r.From != "" && r.To != "":
		sb.WriteString(" AND date(" + col + ") BETWEEN date(?) AND date(?)")
		return append(args, r.From, r.To)
	case r.From != "":
		sb.WriteString(" AND date(" + col + ") >= date(?)")
		return append(args, r.From)
	case r.To != "":
		sb.WriteString(" AND date(" + col + ") <= date(?)")
		return append(args, r.To)
	}
	return args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards so a search for "50%" matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
