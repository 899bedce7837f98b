package postgres

import (
	"strconv"
	"strings"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

// arg appends v and returns its placeholder.
func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *whereBuilder) add(cond string) {
	b.conds = append(b.conds, cond)
}

// in returns a placeholder list for values.
func (b *whereBuilder) in(values []string) string {
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = b.arg(v)
	}
	return "(" + strings.Join(ph, ", ") + ")"
}

func (b *whereBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// limit appends LIMIT/OFFSET for page. A zero limit selects everything.
func (b *whereBuilder) limit(page store.Page) string {
	if page.Limit <= 0 {
		return ""
	}
	return " LIMIT " + b.arg(page.Limit) + " OFFSET " + b.arg(page.Offset())
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func statusStrings(statuses []domain.TaskStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func buildTaskWhere(f store.TaskFilter) *whereBuilder {
	b := &whereBuilder{}
	if !f.IncludeArchived {
		b.add("is_archived = FALSE")
	}
	if f.VisibleTo != nil {
		p := b.arg(*f.VisibleTo)
		b.add("(created_by = " + p + " OR assigned_to = " + p + ")")
	}
	if f.CreatedBy != nil {
		b.add("created_by = " + b.arg(*f.CreatedBy))
	}
	if f.AssignedTo != nil {
		b.add("assigned_to = " + b.arg(*f.AssignedTo))
	}
	if len(f.Statuses) > 0 {
		b.add("status IN " + b.in(statusStrings(f.Statuses)))
	}
	if len(f.ExcludeStatuses) > 0 {
		b.add("status NOT IN " + b.in(statusStrings(f.ExcludeStatuses)))
	}
	if f.Priority != "" {
		b.add("priority = " + b.arg(string(f.Priority)))
	}
	if f.Category != "" {
		b.add("category = " + b.arg(string(f.Category)))
	}
	if f.Search != "" {
		p := b.arg(containsPattern(f.Search))
		b.add("(title ILIKE " + p + " OR description ILIKE " + p + ")")
	}
	if f.DueBefore != nil {
		b.add("due_date < " + b.arg(*f.DueBefore))
	}
	if f.CreatedAfter != nil {
		b.add("created_at >= " + b.arg(*f.CreatedAfter))
	}
	return b
}

func buildUserWhere(f store.UserFilter) *whereBuilder {
	b := &whereBuilder{}
	if f.Search != "" {
		p := b.arg(containsPattern(f.Search))
		b.add("(name ILIKE " + p + " OR email ILIKE " + p + " OR department ILIKE " + p + ")")
	}
	if f.Role != "" {
		b.add("role = " + b.arg(string(f.Role)))
	}
	if f.Active != nil {
		b.add("is_active = " + b.arg(*f.Active))
	}
	return b
}

const priorityRank = "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'urgent' THEN 4 END"

var taskSortColumns = map[store.SortField]string{
	store.SortCreatedAt: "created_at",
	store.SortUpdatedAt: "updated_at",
	store.SortDueDate:   "due_date",
	store.SortPriority:  priorityRank,
	store.SortTitle:     "title",
	store.SortStatus:    "status",
}

var userSortColumns = map[store.SortField]string{
	store.SortName:      "name",
	store.SortCreatedAt: "created_at",
}

func orderBy(page store.Page, columns map[store.SortField]string, fallback string, fallbackDesc bool) string {
	col, ok := columns[page.Sort]
	desc := page.Desc
	if !ok {
		col, desc = fallback, fallbackDesc
	}
	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	nulls := ""
	if col == "due_date" {
		nulls = " NULLS LAST"
	}
	return " ORDER BY " + col + dir + nulls + ", id" + dir
}

func taskOrderBy(page store.Page) string {
	return orderBy(page, taskSortColumns, "created_at", true)
}

func userOrderBy(page store.Page) string {
	return orderBy(page, userSortColumns, "name", false)
}
