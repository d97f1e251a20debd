// Package guardrails enforces advisory-compliance policy on generated
// narrative text. Each rule is deterministic: it inspects the text and either
// passes or fails with corrective feedback the generating agent can act on
// when the stage retries. Rules never rewrite text themselves.
package guardrails

import (
	"fmt"
	"strings"
)

// Guardrail is a single named policy rule.
type Guardrail struct {
	Name  string
	Check func(text string) (bool, string) // (pass, corrective feedback on failure)
}

// Violation records one failed rule.
type Violation struct {
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

// Run applies a rule set to the text and returns all violations. A nil
// result means the text passed every rule.
func Run(text string, set []Guardrail) []Violation {
	var violations []Violation
	for _, g := range set {
		if pass, reason := g.Check(text); !pass {
			violations = append(violations, Violation{Rule: g.Name, Reason: reason})
		}
	}
	return violations
}

// Feedback joins violation reasons into a single corrective block for the
// retry prompt.
func Feedback(violations []Violation) string {
	if len(violations) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Your previous draft violated the following policies. Rewrite it addressing each point:\n")
	for i, v := range violations {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, v.Rule, v.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Rule sets per task type. Order matters: broad high-severity policy checks
// run first.

// DataAnalysisSet covers market-data analysis output.
func DataAnalysisSet() []Guardrail {
	return []Guardrail{
		NoAbsoluteCertainty,
		RealisticProjections,
	}
}

// FinancialModelingSet covers metric narration output.
func FinancialModelingSet() []Guardrail {
	return []Guardrail{
		NoGuaranteedReturns,
		RealisticProjections,
	}
}

// RiskAssessmentSet covers strategy and risk screening output.
func RiskAssessmentSet() []Guardrail {
	return []Guardrail{
		NoAbsoluteCertainty,
	}
}

// FinalRecommendationSet covers the investment advisor's final report and
// applies every rule.
func FinalRecommendationSet() []Guardrail {
	return []Guardrail{
		NoGuaranteedReturns,
		NoAbsoluteCertainty,
		AnalysisNotAdvice,
		NoManipulationTactics,
		RealisticProjections,
		RiskAcknowledgment,
		ProfessionalConsultation,
	}
}
