package dose

import "fmt"

// Decision is the outcome of the rule-based escalation check.
type Decision string

const (
	DecisionEnroll     Decision = "Enroll"
	DecisionEscalate   Decision = "Escalate"
	DecisionExpand     Decision = "Expand Cohort"
	DecisionDeEscalate Decision = "De-escalate"
)

// RuleResult is the classic design rule applied to the latest cohort.
type RuleResult struct {
	Cohort   string   `json:"cohort"`
	Subjects int      `json:"subjects"`
	DLTs     int      `json:"dlts"`
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason"`
}

// ThreePlusThree applies the 3+3 rule to the cohort of the most recently
// entered subject: 0/3 DLTs escalates, 1/3 expands to 6, 2 or more
// de-escalates, and at most 1/6 escalates.
func ThreePlusThree(subjects []Subject, cohortSize int) RuleResult {
	if cohortSize <= 0 {
		cohortSize = 3
	}
	if len(subjects) == 0 {
		return RuleResult{Decision: DecisionEnroll, Reason: "No subjects recorded"}
	}

	cohort := subjects[len(subjects)-1].Cohort
	r := RuleResult{Cohort: cohort}
	for _, s := range subjects {
		if s.Cohort != cohort {
			continue
		}
		r.Subjects++
		if s.DLT {
			r.DLTs++
		}
	}

	expanded := cohortSize * 2
	switch {
	case r.DLTs >= 2:
		r.Decision = DecisionDeEscalate
		r.Reason = fmt.Sprintf("%d/%d DLTs: MTD exceeded at this dose level", r.DLTs, r.Subjects)
	case r.Subjects < cohortSize:
		r.Decision = DecisionEnroll
		r.Reason = fmt.Sprintf("%d of %d subjects evaluated", r.Subjects, cohortSize)
	case r.Subjects < expanded && r.DLTs == 1:
		if r.Subjects == cohortSize {
			r.Decision = DecisionExpand
			r.Reason = fmt.Sprintf("1/%d DLT: expand cohort to %d", r.Subjects, expanded)
		} else {
			r.Decision = DecisionEnroll
			r.Reason = fmt.Sprintf("1 DLT, %d of %d expanded subjects evaluated", r.Subjects, expanded)
		}
	default:
		r.Decision = DecisionEscalate
		r.Reason = fmt.Sprintf("%d/%d DLTs: escalate to the next dose level", r.DLTs, r.Subjects)
	}
	return r
}
