// Package model holds the domain entities exchanged with the case-management
// backend and the filter/sort/pagination parameters used to query them.
package model

import (
	"fmt"
	"time"

	"github.com/casescope/casescope/internal/apierr"
)

// User identifies an investigator, supervisor, manager or analyst.
type User struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Role       string     `json:"role"`
	Department string     `json:"department"`
	IsActive   bool       `json:"isActive"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
}

// Case is an investigation against one or more suspicious alerts.
type Case struct {
	ID           string      `json:"id"`
	CaseNumber   string      `json:"caseNumber"`
	CaseType     CaseType    `json:"caseType"`
	Priority     Priority    `json:"priority"`
	Status       CaseStatus  `json:"status"`
	Description  string      `json:"description"`
	RiskScore    *int        `json:"riskScore,omitempty"`
	Entity       string      `json:"entity,omitempty"`
	AlertID      string      `json:"alertId,omitempty"`
	Typology     Typology    `json:"typology,omitempty"`
	AssignedTo   string      `json:"assignedTo,omitempty"`
	SupervisorID string      `json:"supervisorId,omitempty"`
	DueDate      *time.Time  `json:"dueDate,omitempty"`
	Comments     []Comment   `json:"comments"`
	AuditTrail   []AuditEntry `json:"auditTrail"`
	Tags         []string    `json:"tags"`
	RelatedCases []string    `json:"relatedCases"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	CreatedBy    string      `json:"createdBy"`
	UpdatedBy    string      `json:"updatedBy"`
}

// Task is a unit of work attached to a case.
type Task struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Type          TaskType       `json:"type"`
	Status        TaskStatus     `json:"status"`
	Priority      Priority       `json:"priority"`
	CaseID        string         `json:"caseId"`
	AssignedTo    string         `json:"assignedTo,omitempty"`
	AssignedGroup string         `json:"assignedGroup,omitempty"`
	DueDate       *time.Time     `json:"dueDate,omitempty"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
	Variables     map[string]any `json:"variables"`
	Comments      []Comment      `json:"comments"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	CreatedBy     string         `json:"createdBy"`
	UpdatedBy     string         `json:"updatedBy"`
}

// Comment belongs to either a case or a task, never both.
type Comment struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	Author         string    `json:"author"`
	CaseID         string    `json:"caseId,omitempty"`
	TaskID         string    `json:"taskId,omitempty"`
	IsInternal     bool      `json:"isInternal"`
	MentionedUsers []string  `json:"mentionedUsers"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// AuditEntry is one immutable record in an entity's audit trail.
type AuditEntry struct {
	ID          string      `json:"id"`
	EntityType  string      `json:"entityType"`
	EntityID    string      `json:"entityId"`
	Action      AuditAction `json:"action"`
	OldValue    any         `json:"oldValue,omitempty"`
	NewValue    any         `json:"newValue,omitempty"`
	Field       string      `json:"field,omitempty"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"createdAt"`
	CreatedBy   string      `json:"createdBy"`
}

// DashboardStats is the aggregate served by the dashboard endpoint.
type DashboardStats struct {
	TotalCases            int     `json:"totalCases"`
	ActiveCases           int     `json:"activeCases"`
	CompletedCases        int     `json:"completedCases"`
	OverdueItems          int     `json:"overdueItems"`
	MyTasks               int     `json:"myTasks"`
	MyActiveCases         int     `json:"myActiveCases"`
	AverageResolutionTime float64 `json:"averageResolutionTime"`
	RiskDistribution      struct {
		Low      int `json:"low"`
		Medium   int `json:"medium"`
		High     int `json:"high"`
		Critical int `json:"critical"`
	} `json:"riskDistribution"`
	CasesByType struct {
		AML       int `json:"aml"`
		Fraud     int `json:"fraud"`
		Sanctions int `json:"sanctions"`
	} `json:"casesByType"`
	MonthlyTrends []MonthlyTrend `json:"monthlyTrends"`
}

// MonthlyTrend is one point in the dashboard trend series.
type MonthlyTrend struct {
	Month    string `json:"month"`
	Cases    int    `json:"cases"`
	Resolved int    `json:"resolved"`
}

// RecentActivity is one row in the dashboard activity feed.
type RecentActivity struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	User        string         `json:"user"`
	CaseID      string         `json:"caseId,omitempty"`
	TaskID      string         `json:"taskId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CreateCase is the payload for POST /api/cases/create.
type CreateCase struct {
	CaseType    CaseType `json:"caseType,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	Description string   `json:"description"`
	RiskScore   *int     `json:"riskScore,omitempty"`
	Entity      string   `json:"entity,omitempty"`
	AlertID     string   `json:"alertId,omitempty"`
	Typology    Typology `json:"typology,omitempty"`
}

// Validate applies the client-side checks performed before any network call.
func (c CreateCase) Validate() error {
	if c.Description == "" {
		return errDescriptionRequired
	}
	if c.CaseType != "" && !c.CaseType.Valid() {
		return errBadCaseType
	}
	if c.Priority != "" && !c.Priority.Valid() {
		return errBadPriority
	}
	if c.RiskScore != nil && (*c.RiskScore < 0 || *c.RiskScore > 100) {
		return errBadRiskScore
	}
	return nil
}

// UpdateCase is the payload for PUT /api/cases/{id}. Zero-valued fields are
// omitted from the wire body.
type UpdateCase struct {
	CaseType    CaseType   `json:"caseType,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	Description string     `json:"description,omitempty"`
	RiskScore   *int       `json:"riskScore,omitempty"`
	Entity      string     `json:"entity,omitempty"`
	Typology    Typology   `json:"typology,omitempty"`
	Status      CaseStatus `json:"status,omitempty"`
	Comment     string     `json:"comment,omitempty"`
}

// CreateTask is the payload for POST /api/tasks/create.
type CreateTask struct {
	TaskName string     `json:"taskName"`
	Assignee string     `json:"assignee"`
	Status   TaskStatus `json:"status"`
	CaseID   string     `json:"caseId"`
}

func (t CreateTask) Validate() error {
	if t.TaskName == "" {
		return errTaskNameRequired
	}
	if t.CaseID == "" {
		return errCaseIDRequired
	}
	if t.Status != "" && !t.Status.Valid() {
		return errBadTaskStatus
	}
	return nil
}

// UpdateTask is the payload for PUT /api/tasks/{id}. Zero-valued fields
// are omitted from the wire body.
type UpdateTask struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Priority    Priority       `json:"priority,omitempty"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// CaseStatistics is the aggregate served by GET /api/cases/statistics.
type CaseStatistics struct {
	Total            int                `json:"total"`
	ByStatus         map[CaseStatus]int `json:"byStatus"`
	ByType           map[CaseType]int   `json:"byType"`
	ByPriority       map[Priority]int   `json:"byPriority"`
	AverageRiskScore float64            `json:"averageRiskScore"`
	OpenOverdue      int                `json:"openOverdue"`
}

// TaskStatistics is the aggregate served by GET /api/tasks/statistics.
type TaskStatistics struct {
	Total             int                `json:"total"`
	ByStatus          map[TaskStatus]int `json:"byStatus"`
	Overdue           int                `json:"overdue"`
	CompletedThisWeek int                `json:"completedThisWeek"`
}

// TaskWorkload is one assignee's open-work summary.
type TaskWorkload struct {
	Assignee   string `json:"assignee"`
	Pending    int    `json:"pending"`
	InProgress int    `json:"inProgress"`
	Overdue    int    `json:"overdue"`
}

// TaskPerformance is one assignee's completion summary.
type TaskPerformance struct {
	Assignee               string  `json:"assignee"`
	Completed              int     `json:"completed"`
	AverageCompletionHours float64 `json:"averageCompletionHours"`
	OnTimeRate             float64 `json:"onTimeRate"`
}

// CaseNumber renders the display identifier used for new cases.
func CaseNumber(year, sequence int) string {
	return fmt.Sprintf("CASE-%d-%04d", year, sequence)
}

var (
	errDescriptionRequired = apierr.Validation("case description is required")
	errBadCaseType         = apierr.Validation("unknown case type")
	errBadPriority         = apierr.Validation("unknown priority")
	errBadRiskScore        = apierr.Validation("risk score must be between 0 and 100")
	errTaskNameRequired    = apierr.Validation("task name is required")
	errCaseIDRequired      = apierr.Validation("task must reference a case")
	errBadTaskStatus       = apierr.Validation("unknown task status")
)
