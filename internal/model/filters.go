package model

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Sort directions accepted by the backend.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Sort names the field and direction of a list query. The wire format is
// "field,asc" / "field,desc".
type Sort struct {
	Field     string
	Direction string
}

func (s Sort) encoded() string {
	dir := s.Direction
	if dir != "desc" {
		dir = "asc"
	}
	return s.Field + "," + dir
}

// Page is a 1-based page request. The wire boundary converts to the backend's
// 0-based indexing.
type Page struct {
	Number int
	Size   int
}

// normalize applies the defaults used across every list endpoint.
func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = 20
	}
	return p
}

// ScoreRange bounds a numeric filter.
type ScoreRange struct {
	Min int
	Max int
}

// DateRange bounds a time filter.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// CaseFilters narrows a case list query. Nil-valued or empty fields are
// omitted from the encoded parameters entirely.
type CaseFilters struct {
	Status     []CaseStatus
	Type       []CaseType
	AssignedTo []string
	Priority   []Priority
	RiskScore  *ScoreRange
	DateRange  *DateRange
	Tags       []string
	Search     string
}

// Encode serializes filters, sort and paging into query parameters. Array
// values are comma-joined; ranges expand to min/max and start/end pairs.
// Encoding the same inputs twice yields identical parameters.
func (f *CaseFilters) Encode(sort *Sort, page Page) url.Values {
	page = page.normalize()
	v := url.Values{}
	v.Set("page", strconv.Itoa(page.Number-1))
	v.Set("size", strconv.Itoa(page.Size))
	if sort != nil {
		v.Set("sort", sort.encoded())
	}
	if f == nil {
		return v
	}
	if len(f.Status) > 0 {
		v.Set("status", joinCaseStatuses(f.Status))
	}
	if len(f.Type) > 0 {
		v.Set("type", joinCaseTypes(f.Type))
	}
	if len(f.AssignedTo) > 0 {
		v.Set("assignedTo", strings.Join(f.AssignedTo, ","))
	}
	if len(f.Priority) > 0 {
		v.Set("priority", joinPriorities(f.Priority))
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.RiskScore != nil {
		v.Set("riskScoreMin", strconv.Itoa(f.RiskScore.Min))
		v.Set("riskScoreMax", strconv.Itoa(f.RiskScore.Max))
	}
	if f.DateRange != nil {
		v.Set("startDate", f.DateRange.Start.UTC().Format(time.RFC3339))
		v.Set("endDate", f.DateRange.End.UTC().Format(time.RFC3339))
	}
	if len(f.Tags) > 0 {
		v.Set("tags", strings.Join(f.Tags, ","))
	}
	return v
}

// TaskFilters narrows a task list query.
type TaskFilters struct {
	Status     []TaskStatus
	Type       []TaskType
	AssignedTo []string
	Priority   []Priority
	DueDate    *DateRange
	CaseID     string
	Search     string
}

// Encode mirrors CaseFilters.Encode for the task surface; the due date range
// expands to dueDateStart/dueDateEnd.
func (f *TaskFilters) Encode(sort *Sort, page Page) url.Values {
	page = page.normalize()
	v := url.Values{}
	v.Set("page", strconv.Itoa(page.Number-1))
	v.Set("size", strconv.Itoa(page.Size))
	if sort != nil {
		v.Set("sort", sort.encoded())
	}
	if f == nil {
		return v
	}
	if len(f.Status) > 0 {
		v.Set("status", joinTaskStatuses(f.Status))
	}
	if len(f.Type) > 0 {
		v.Set("type", joinTaskTypes(f.Type))
	}
	if len(f.AssignedTo) > 0 {
		v.Set("assignedTo", strings.Join(f.AssignedTo, ","))
	}
	if len(f.Priority) > 0 {
		v.Set("priority", joinPriorities(f.Priority))
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.CaseID != "" {
		v.Set("caseId", f.CaseID)
	}
	if f.DueDate != nil {
		v.Set("dueDateStart", f.DueDate.Start.UTC().Format(time.RFC3339))
		v.Set("dueDateEnd", f.DueDate.End.UTC().Format(time.RFC3339))
	}
	return v
}

func joinCaseStatuses(in []CaseStatus) string {
	parts := make([]string, len(in))
	for i, s := range in {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func joinCaseTypes(in []CaseType) string {
	parts := make([]string, len(in))
	for i, s := range in {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func joinTaskStatuses(in []TaskStatus) string {
	parts := make([]string, len(in))
	for i, s := range in {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func joinTaskTypes(in []TaskType) string {
	parts := make([]string, len(in))
	for i, s := range in {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func joinPriorities(in []Priority) string {
	parts := make([]string, len(in))
	for i, s := range in {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}
