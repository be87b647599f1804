package model

import "fmt"

// CaseStatus is the case lifecycle state as reported by the backend. The
// client requests transitions and trusts the resulting status; legality is
// decided server-side.
type CaseStatus string

const (
	CaseDraft              CaseStatus = "DRAFT"
	CaseReadyForAssignment CaseStatus = "READY_FOR_ASSIGNMENT"
	CaseUnderInvestigation CaseStatus = "UNDER_INVESTIGATION"
	CasePendingApproval    CaseStatus = "PENDING_APPROVAL"
	CaseClosed             CaseStatus = "CLOSED"
	CaseRejected           CaseStatus = "REJECTED"
)

var caseStatuses = map[CaseStatus]bool{
	CaseDraft:              true,
	CaseReadyForAssignment: true,
	CaseUnderInvestigation: true,
	CasePendingApproval:    true,
	CaseClosed:             true,
	CaseRejected:           true,
}

// caseProgression is the canonical happy path. It drives display helpers
// only; any status may still be requested.
var caseProgression = map[CaseStatus]CaseStatus{
	CaseDraft:              CaseReadyForAssignment,
	CaseReadyForAssignment: CaseUnderInvestigation,
	CaseUnderInvestigation: CasePendingApproval,
	CasePendingApproval:    CaseClosed,
}

// quickStatusComments are the canned audit comments attached by the quick
// status helper.
var quickStatusComments = map[CaseStatus]string{
	CaseReadyForAssignment: "Case is ready for assignment",
	CaseUnderInvestigation: "Investigation started",
	CasePendingApproval:    "Case submitted for approval",
	CaseClosed:             "Case investigation completed",
	CaseRejected:           "Case rejected after review",
}

func (s CaseStatus) Valid() bool { return caseStatuses[s] }

// Terminal reports whether the UI offers no further transition from s.
func (s CaseStatus) Terminal() bool { return s == CaseClosed || s == CaseRejected }

// Next returns the canonical next status, or "" from a terminal state.
func (s CaseStatus) Next() CaseStatus { return caseProgression[s] }

// QuickComment returns the canned comment used when requesting a transition
// to s without an explicit one.
func (s CaseStatus) QuickComment() string {
	if c, ok := quickStatusComments[s]; ok {
		return c
	}
	return fmt.Sprintf("Status updated to %s", s)
}

func ParseCaseStatus(v string) (CaseStatus, error) {
	s := CaseStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown case status %q", v)
	}
	return s, nil
}

// TaskStatus is the task lifecycle state.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

var taskStatuses = map[TaskStatus]bool{
	TaskPending:    true,
	TaskInProgress: true,
	TaskCompleted:  true,
	TaskCancelled:  true,
}

func (s TaskStatus) Valid() bool    { return taskStatuses[s] }
func (s TaskStatus) Terminal() bool { return s == TaskCompleted || s == TaskCancelled }

func ParseTaskStatus(v string) (TaskStatus, error) {
	s := TaskStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown task status %q", v)
	}
	return s, nil
}

// CaseType classifies the investigation.
type CaseType string

const (
	CaseTypeAML       CaseType = "AML"
	CaseTypeFraud     CaseType = "FRAUD"
	CaseTypeSanctions CaseType = "SANCTIONS"
)

var caseTypes = map[CaseType]bool{CaseTypeAML: true, CaseTypeFraud: true, CaseTypeSanctions: true}

func (t CaseType) Valid() bool { return caseTypes[t] }

func ParseCaseType(v string) (CaseType, error) {
	t := CaseType(v)
	if !t.Valid() {
		return "", fmt.Errorf("unknown case type %q", v)
	}
	return t, nil
}

// TaskType classifies the unit of work.
type TaskType string

const (
	TaskTypeApproval      TaskType = "APPROVAL"
	TaskTypeInvestigation TaskType = "INVESTIGATION"
	TaskTypeReview        TaskType = "REVIEW"
	TaskTypeDocumentation TaskType = "DOCUMENTATION"
)

var taskTypes = map[TaskType]bool{
	TaskTypeApproval:      true,
	TaskTypeInvestigation: true,
	TaskTypeReview:        true,
	TaskTypeDocumentation: true,
}

func (t TaskType) Valid() bool { return taskTypes[t] }

func ParseTaskType(v string) (TaskType, error) {
	t := TaskType(v)
	if !t.Valid() {
		return "", fmt.Errorf("unknown task type %q", v)
	}
	return t, nil
}

// Priority orders work queues.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

var priorities = map[Priority]bool{
	PriorityLow:      true,
	PriorityMedium:   true,
	PriorityHigh:     true,
	PriorityCritical: true,
}

func (p Priority) Valid() bool { return priorities[p] }

func ParsePriority(v string) (Priority, error) {
	p := Priority(v)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", v)
	}
	return p, nil
}

// Typology names the suspected financial-crime pattern.
type Typology string

const (
	TypologyStructuring      Typology = "STRUCTURING"
	TypologyLayering         Typology = "LAYERING"
	TypologyMuleActivity     Typology = "MULE_ACTIVITY"
	TypologyTradeBased       Typology = "TRADE_BASED"
	TypologySanctionsEvasion Typology = "SANCTIONS_EVASION"
)

var typologies = map[Typology]bool{
	TypologyStructuring:      true,
	TypologyLayering:         true,
	TypologyMuleActivity:     true,
	TypologyTradeBased:       true,
	TypologySanctionsEvasion: true,
}

func (t Typology) Valid() bool { return typologies[t] }

// AuditAction enumerates the recorded audit trail actions.
type AuditAction string

const (
	AuditCreate       AuditAction = "CREATE"
	AuditUpdate       AuditAction = "UPDATE"
	AuditDelete       AuditAction = "DELETE"
	AuditStatusChange AuditAction = "STATUS_CHANGE"
	AuditAssign       AuditAction = "ASSIGN"
	AuditComplete     AuditAction = "COMPLETE"
)

// Risk score thresholds used for display bucketing and the approval rule.
const (
	RiskLowMax      = 30
	RiskMediumMax   = 60
	RiskHighMax     = 80
	RiskCriticalMin = 90
)

// RiskLevel buckets a 0-100 risk score into a priority band.
func RiskLevel(score int) Priority {
	switch {
	case score >= RiskCriticalMin:
		return PriorityCritical
	case score >= RiskHighMax:
		return PriorityHigh
	case score >= RiskMediumMax:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// RequiresApproval reports whether the backend routes the case through
// supervisor approval.
func RequiresApproval(score int) bool { return score >= RiskHighMax }
