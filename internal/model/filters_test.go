package model

import (
	"testing"
	"time"
)

func TestCaseFiltersEncode(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	f := &CaseFilters{
		Status:     []CaseStatus{CaseUnderInvestigation, CasePendingApproval},
		Type:       []CaseType{CaseTypeAML},
		AssignedTo: []string{"u1", "u2"},
		Priority:   []Priority{PriorityHigh},
		RiskScore:  &ScoreRange{Min: 40, Max: 90},
		DateRange:  &DateRange{Start: start, End: end},
		Tags:       []string{"pep", "offshore"},
		Search:     "wire transfer",
	}
	v := f.Encode(&Sort{Field: "createdAt", Direction: "desc"}, Page{Number: 2, Size: 50})

	expect := map[string]string{
		"page":         "1",
		"size":         "50",
		"sort":         "createdAt,desc",
		"status":       "UNDER_INVESTIGATION,PENDING_APPROVAL",
		"type":         "AML",
		"assignedTo":   "u1,u2",
		"priority":     "HIGH",
		"riskScoreMin": "40",
		"riskScoreMax": "90",
		"startDate":    "2026-01-01T00:00:00Z",
		"endDate":      "2026-02-01T00:00:00Z",
		"tags":         "pep,offshore",
		"search":       "wire transfer",
	}
	for k, want := range expect {
		if got := v.Get(k); got != want {
			t.Errorf("%s = %q want %q", k, got, want)
		}
	}
	if len(v) != len(expect) {
		t.Errorf("encoded %d params want %d: %v", len(v), len(expect), v)
	}
}

func TestCaseFiltersEncodeOmitsUnset(t *testing.T) {
	v := (&CaseFilters{}).Encode(nil, Page{})
	if got := v.Get("page"); got != "0" {
		t.Errorf("page = %q want 0 (1-based default converted)", got)
	}
	if got := v.Get("size"); got != "20" {
		t.Errorf("size = %q want 20", got)
	}
	for _, k := range []string{"status", "type", "assignedTo", "priority", "search", "riskScoreMin", "startDate", "tags", "sort"} {
		if _, ok := v[k]; ok {
			t.Errorf("unset filter %q must be omitted, got %q", k, v.Get(k))
		}
	}
	// nil filters behave like empty ones
	var nilf *CaseFilters
	if got := nilf.Encode(nil, Page{}).Encode(); got != v.Encode() {
		t.Errorf("nil filters encode = %q want %q", got, v.Encode())
	}
}

func TestCaseFiltersEncodeIdempotent(t *testing.T) {
	f := &CaseFilters{
		Status: []CaseStatus{CaseDraft},
		Tags:   []string{"b", "a"},
		Search: "x",
	}
	first := f.Encode(&Sort{Field: "priority"}, Page{Number: 3, Size: 10}).Encode()
	second := f.Encode(&Sort{Field: "priority"}, Page{Number: 3, Size: 10}).Encode()
	if first != second {
		t.Errorf("round-trip instability: %q vs %q", first, second)
	}
}

func TestTaskFiltersEncode(t *testing.T) {
	due := &DateRange{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
	}
	f := &TaskFilters{
		Status:  []TaskStatus{TaskPending, TaskInProgress},
		CaseID:  "C1",
		DueDate: due,
	}
	v := f.Encode(nil, Page{Number: 1, Size: 20})
	if got := v.Get("status"); got != "PENDING,IN_PROGRESS" {
		t.Errorf("status = %q", got)
	}
	if got := v.Get("caseId"); got != "C1" {
		t.Errorf("caseId = %q", got)
	}
	if got := v.Get("dueDateStart"); got != "2026-03-01T00:00:00Z" {
		t.Errorf("dueDateStart = %q", got)
	}
	if got := v.Get("dueDateEnd"); got != "2026-03-08T00:00:00Z" {
		t.Errorf("dueDateEnd = %q", got)
	}
	if got := v.Get("page"); got != "0" {
		t.Errorf("page = %q want 0-based conversion", got)
	}
}

func TestValidateCreateCase(t *testing.T) {
	bad := 120
	cases := []struct {
		name    string
		in      CreateCase
		wantErr bool
	}{
		{"ok", CreateCase{Description: "suspicious wires", CaseType: CaseTypeAML}, false},
		{"missing_description", CreateCase{CaseType: CaseTypeFraud}, true},
		{"bad_type", CreateCase{Description: "d", CaseType: "PHISHING"}, true},
		{"bad_risk", CreateCase{Description: "d", RiskScore: &bad}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v wantErr %v", err, tc.wantErr)
			}
		})
	}
}
