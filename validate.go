package flowchart

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Severity grades a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding. NodeID or EdgeID point at the
// offending element when there is one.
type Issue struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	NodeID   string   `json:"node_id,omitempty"`
	EdgeID   string   `json:"edge_id,omitempty"`
}

const (
	maxLabelRunes     = 50
	maxTotalMinutes   = 8 * 60
	maxDepartments    = 5
	minDecisionOutput = 2
)

// Validate runs every rule against doc. now is used for due-date checks.
func Validate(doc Document, now time.Time) []Issue {
	var issues []Issue
	issues = append(issues, validateNodes(doc, now)...)
	issues = append(issues, validateEdges(doc)...)
	issues = append(issues, validateFlow(doc)...)
	issues = append(issues, validateBusinessRules(doc)...)
	return issues
}

// ValidateRealtime is the light rule set run after every edit: node checks
// plus unconnected nodes.
func ValidateRealtime(doc Document, now time.Time) []Issue {
	issues := validateNodes(doc, now)
	deg := degrees(doc)
	for _, n := range doc.Nodes {
		if d := deg[n.ID]; d.in == 0 && d.out == 0 {
			issues = append(issues, Issue{
				ID:       "node-" + n.ID + "-orphan",
				Severity: SeverityWarning,
				Code:     "orphan",
				Message:  "node is not connected",
				NodeID:   n.ID,
			})
		}
	}
	return issues
}

// Partition splits issues into errors and warnings, keeping order.
func Partition(issues []Issue) (errs, warnings []Issue) {
	for _, is := range issues {
		if is.Severity == SeverityError {
			errs = append(errs, is)
		} else {
			warnings = append(warnings, is)
		}
	}
	return errs, warnings
}

type degree struct{ in, out int }

// degrees counts incoming and outgoing edges per node id.
func degrees(doc Document) map[string]degree {
	deg := make(map[string]degree, len(doc.Nodes))
	for _, e := range doc.Edges {
		d := deg[e.Source]
		d.out++
		deg[e.Source] = d
		d = deg[e.Target]
		d.in++
		deg[e.Target] = d
	}
	return deg
}

func validateNodes(doc Document, now time.Time) []Issue {
	var issues []Issue
	for _, n := range doc.Nodes {
		if strings.TrimSpace(n.Data.Label) == "" {
			issues = append(issues, Issue{
				ID:       "node-" + n.ID + "-label",
				Severity: SeverityError,
				Code:     "label_missing",
				Message:  "node needs a label",
				NodeID:   n.ID,
			})
		} else if utf8.RuneCountInString(n.Data.Label) > maxLabelRunes {
			issues = append(issues, Issue{
				ID:       "node-" + n.ID + "-label-length",
				Severity: SeverityWarning,
				Code:     "label_too_long",
				Message:  fmt.Sprintf("label is longer than %d characters", maxLabelRunes),
				NodeID:   n.ID,
			})
		}

		b := n.Data.Business
		if b == nil {
			continue
		}
		if b.EstimatedMinutes != nil && *b.EstimatedMinutes <= 0 {
			issues = append(issues, Issue{
				ID:       "node-" + n.ID + "-time",
				Severity: SeverityWarning,
				Code:     "estimate_not_positive",
				Message:  "estimated time must be positive",
				NodeID:   n.ID,
			})
		}
		if b.DueDate != nil && b.DueDate.Before(now) {
			issues = append(issues, Issue{
				ID:       "node-" + n.ID + "-due-date",
				Severity: SeverityWarning,
				Code:     "due_date_past",
				Message:  "due date is in the past",
				NodeID:   n.ID,
			})
		}
	}
	return issues
}

func validateEdges(doc Document) []Issue {
	ids := make(map[string]struct{}, len(doc.Nodes))
	for _, n := range doc.Nodes {
		ids[n.ID] = struct{}{}
	}

	var issues []Issue
	for _, e := range doc.Edges {
		if _, ok := ids[e.Source]; !ok {
			issues = append(issues, Issue{
				ID:       "edge-" + e.ID + "-source",
				Severity: SeverityError,
				Code:     "source_missing",
				Message:  fmt.Sprintf("edge source node %q does not exist", e.Source),
				EdgeID:   e.ID,
			})
		}
		if _, ok := ids[e.Target]; !ok {
			issues = append(issues, Issue{
				ID:       "edge-" + e.ID + "-target",
				Severity: SeverityError,
				Code:     "target_missing",
				Message:  fmt.Sprintf("edge target node %q does not exist", e.Target),
				EdgeID:   e.ID,
			})
		}
		if e.Source == e.Target {
			issues = append(issues, Issue{
				ID:       "edge-" + e.ID + "-self",
				Severity: SeverityWarning,
				Code:     "self_loop",
				Message:  "node is connected to itself",
				EdgeID:   e.ID,
			})
		}
	}
	return issues
}

func validateFlow(doc Document) []Issue {
	deg := degrees(doc)
	var issues []Issue

	var starts, ends int
	for _, n := range doc.Nodes {
		if n.Type != ShapeStartEnd {
			continue
		}
		if deg[n.ID].in == 0 {
			starts++
		}
		if deg[n.ID].out == 0 {
			ends++
		}
	}
	switch {
	case starts == 0:
		issues = append(issues, Issue{ID: "flow-no-start", Severity: SeverityWarning,
			Code: "no_start", Message: "no start node found"})
	case starts > 1:
		issues = append(issues, Issue{ID: "flow-multiple-starts", Severity: SeverityWarning,
			Code: "multiple_starts", Message: "more than one start node"})
	}
	if ends == 0 {
		issues = append(issues, Issue{ID: "flow-no-end", Severity: SeverityWarning,
			Code: "no_end", Message: "no end node found"})
	}

	for _, n := range doc.Nodes {
		d := deg[n.ID]
		if d.in == 0 && d.out == 0 {
			issues = append(issues, Issue{
				ID:       "node-" + n.ID + "-orphan",
				Severity: SeverityWarning,
				Code:     "orphan",
				Message:  "node is not connected",
				NodeID:   n.ID,
			})
		}
		if n.Type != ShapeStartEnd && d.out == 0 {
			issues = append(issues, Issue{
				ID:       "node-" + n.ID + "-dead-end",
				Severity: SeverityWarning,
				Code:     "dead_end",
				Message:  "node has no outgoing edge",
				NodeID:   n.ID,
			})
		}
		if n.Type == ShapeDiamond && d.out < minDecisionOutput {
			issues = append(issues, Issue{
				ID:       "node-" + n.ID + "-decision-outputs",
				Severity: SeverityWarning,
				Code:     "decision_outputs",
				Message:  fmt.Sprintf("decision needs at least %d outgoing edges", minDecisionOutput),
				NodeID:   n.ID,
			})
		}
	}
	return issues
}

func validateBusinessRules(doc Document) []Issue {
	var issues []Issue

	var total float64
	var critical, low bool
	departments := make(map[string]struct{})
	for _, n := range doc.Nodes {
		b := n.Data.Business
		total += b.estimated()
		if b == nil {
			continue
		}
		critical = critical || b.Priority == PriorityCritical
		low = low || b.Priority == PriorityLow
		if b.Department != "" {
			departments[b.Department] = struct{}{}
		}
	}

	if total > maxTotalMinutes {
		issues = append(issues, Issue{
			ID:       "flow-time-excessive",
			Severity: SeverityWarning,
			Code:     "time_excessive",
			Message:  fmt.Sprintf("total estimated time is %.0f hours", total/60),
		})
	}
	if critical && low {
		issues = append(issues, Issue{
			ID:       "flow-priority-inconsistency",
			Severity: SeverityWarning,
			Code:     "priority_mix",
			Message:  "critical and low priority steps are mixed in one flow",
		})
	}
	if len(departments) > maxDepartments {
		issues = append(issues, Issue{
			ID:       "flow-department-fragmentation",
			Severity: SeverityWarning,
			Code:     "department_fragmentation",
			Message:  "flow spans many departments",
		})
	}
	return issues
}
