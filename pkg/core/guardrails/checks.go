package guardrails

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/utils"
)

const (
	// Presence rules (risk acknowledgment, professional consultation) only
	// apply to substantial outputs; short interim messages are exempt.
	substantialOutputLength = 500

	// Annual return claims above this percentage are treated as unrealistic
	// for residential real estate.
	maxClaimedReturnPercent = 25
)

var guaranteedReturnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(guaranteed|guarantee[sd]?|promise[sd]?)\s+(?:return|profit|gain|income)`),
	regexp.MustCompile(`(?i)\b(?:guaranteed|guarantee[sd]?)\s+to\s+(?:make|earn|generate|return)\b`),
	regexp.MustCompile(`(?i)\b(?:promise[sd]?|promising)\s+(?:steady\s+)?(?:profit|profits|returns?)\b`),
	regexp.MustCompile(`(?i)\bit(?:'s| is)\s+guaranteed\b`),
	regexp.MustCompile(`(?i)\b(will definitely|will certainly|absolutely will)\s+(?:make|earn|generate)`),
	regexp.MustCompile(`(?i)\b(?:risk-?free|no risk|zero risk)\s+(?:profit|return|investment)`),
	regexp.MustCompile(`(?i)\b(?:can't lose|cannot lose|guaranteed to make)`),
	regexp.MustCompile(`(?i)\bguaranteed\s+(?:\d+%?|\$[\d,]+)`),
	regexp.MustCompile(`(?i)\byou\s+(?:will|are going to)\s+(?:definitely|certainly)\s+(?:make|earn|profit)`),
}

// NoGuaranteedReturns rejects guaranteed return or profit claims, which
// violate investment advisory regulations.
var NoGuaranteedReturns = Guardrail{
	Name: "no_guaranteed_returns",
	Check: func(text string) (bool, string) {
		for _, p := range guaranteedReturnPatterns {
			if p.MatchString(text) {
				return false, "Output contains guaranteed return claims. Investment returns cannot be " +
					"guaranteed. Rewrite using probabilistic language such as 'potential', 'estimated', " +
					"'projected', 'may generate', or 'could provide'. Example: instead of 'will definitely " +
					"earn 10%', use 'has potential to generate approximately 10% based on current market conditions'."
			}
		}
		return true, ""
	},
}

var absoluteCertaintyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:will|must)\s+(?:definitely\s+|certainly\s+|absolutely\s+)?(?:increase|rise|grow|appreciate|go up|become profitable)\b`),
	regexp.MustCompile(`(?i)\b(?:always|never|every time|without exception)\b`),
	regexp.MustCompile(`(?i)\b(?:impossible|zero chance)\s+(?:that|for)`),
	regexp.MustCompile(`(?i)\bno\s+way\b.*\bwill\b`),
	regexp.MustCompile(`(?i)\bthis\s+(?:will|must)\s+be\s+a\s+(?:great|excellent|perfect)\s+investment\b`),
	regexp.MustCompile(`(?i)\b(?:definitely|absolutely|certainly)\s+(?:recommend|suggest)\s+buying`),
}

// NoAbsoluteCertainty rejects claims of certainty about future property
// values or market conditions.
var NoAbsoluteCertainty = Guardrail{
	Name: "no_absolute_certainty",
	Check: func(text string) (bool, string) {
		for _, p := range absoluteCertaintyPatterns {
			if p.MatchString(text) {
				return false, "Output uses absolute certainty language. Real estate markets are " +
					"unpredictable and outcomes are uncertain. Rewrite using conditional language: " +
					"'likely to', 'could', 'may', 'suggests potential for', 'historically has shown'. " +
					"Acknowledge market uncertainty and variability in your analysis."
			}
		}
		return true, ""
	},
}

var directAdvicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:I|we)\s+(?:recommend|advise|suggest)\s+(?:that\s+)?you\s+(?:buy|purchase|invest)`),
	regexp.MustCompile(`(?i)\byou\s+(?:should|must|need to)\s+(?:buy|purchase|invest|sell)`),
	regexp.MustCompile(`(?i)\bthis\s+is\s+(?:the|a)\s+(?:best|perfect|ideal)\s+(?:time|opportunity)\s+to\s+buy`),
	regexp.MustCompile(`(?i)\byou\s+(?:should not|shouldn't|must not)\s+(?:pass|miss)\s+(?:this|on this)`),
}

// AnalysisNotAdvice rejects direct personalized buy/sell recommendations;
// output must be framed as analysis the investor decides on.
var AnalysisNotAdvice = Guardrail{
	Name: "provide_analysis_not_advice",
	Check: func(text string) (bool, string) {
		for _, p := range directAdvicePatterns {
			if p.MatchString(text) {
				return false, "Output provides direct financial advice. Frame the output as analysis and " +
					"information, not advice. Instead of 'You should buy this property', use 'Based on the " +
					"data, this property shows characteristics that align with the strategy' or 'The analysis " +
					"suggests this property demonstrates these qualities'. Let the investor decide."
			}
		}
		return true, ""
	},
}

var manipulationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:act now|buy now|don't wait|limited time|hurry|rush)`),
	regexp.MustCompile(`(?i)\b(?:once in a lifetime|rare opportunity|won't last)`),
	regexp.MustCompile(`(?i)\bif\s+you\s+don't\s+(?:buy|act|move)\s+(?:now|today|immediately)`),
	regexp.MustCompile(`(?i)\b(?:miss out|FOMO|you'll regret)`),
	regexp.MustCompile(`(?i)\bonly\s+\d+\s+(?:days|hours|minutes)\s+(?:left|remaining)`),
}

// NoManipulationTactics rejects urgency and FOMO pressure tactics.
var NoManipulationTactics = Guardrail{
	Name: "no_manipulation_tactics",
	Check: func(text string) (bool, string) {
		for _, p := range manipulationPatterns {
			if p.MatchString(text) {
				return false, "Output uses manipulative urgency tactics. Investment decisions should be made " +
					"thoughtfully, not under pressure. Remove urgency language and time pressure; instead " +
					"encourage thorough due diligence, comprehensive property inspection, and consultation " +
					"with qualified professionals."
			}
		}
		return true, ""
	},
}

var returnClaimPattern = regexp.MustCompile(`(?i)(\d+)%\s+(?:annual\s+|yearly\s+|per\s+year\s+)?(?:return|returns|profit|gain|appreciation|ROI)`)

// RealisticProjections rejects return claims above maxClaimedReturnPercent.
var RealisticProjections = Guardrail{
	Name: "realistic_projections",
	Check: func(text string) (bool, string) {
		for _, match := range returnClaimPattern.FindAllStringSubmatch(text, -1) {
			percentage, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			if percentage > maxClaimedReturnPercent {
				return false, fmt.Sprintf("Output claims %d%% returns, which is unrealistically high for "+
					"typical real estate investments. Standard real estate returns typically range from "+
					"6-15%% for passive investments and 15-20%% for more aggressive strategies. Revise "+
					"projections to realistic ranges, note that these are estimates based on assumptions "+
					"that may not materialize, and include downside scenarios.", percentage)
			}
		}
		return true, ""
	},
}

var riskIndicatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brisk[s]?\b`),
	regexp.MustCompile(`(?i)\buncertain(?:ty)?\b`),
	regexp.MustCompile(`(?i)\bvariab(?:le|ility)\b`),
	regexp.MustCompile(`(?i)\bmay\s+(?:not|fluctuate|change|vary)\b`),
	regexp.MustCompile(`(?i)\bcould\s+(?:decrease|decline|fall)\b`),
	regexp.MustCompile(`(?i)\bno\s+guarantee[s]?\b`),
}

// RiskAcknowledgment requires substantial outputs to acknowledge associated
// risks.
var RiskAcknowledgment = Guardrail{
	Name: "include_risk_acknowledgment",
	Check: func(text string) (bool, string) {
		if len(text) <= substantialOutputLength {
			return true, ""
		}
		for _, p := range riskIndicatorPatterns {
			if p.MatchString(text) {
				return true, ""
			}
		}
		return false, "Output lacks risk acknowledgment. Investment recommendations must acknowledge " +
			"associated risks. Include discussion of market risks, property-specific risks, economic " +
			"uncertainty, and the possibility of loss. Example: 'While the analysis is positive, consider " +
			"risks such as vacancy and rate changes. Market conditions can change, and actual results may " +
			"differ from projections.'"
	},
}

var consultationIndicatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bconsult\s+(?:with\s+)?(?:a\s+)?(?:qualified|licensed|professional)`),
	regexp.MustCompile(`(?i)\bseek\s+(?:advice|guidance|counsel)\s+from`),
	regexp.MustCompile(`(?i)\bspeak\s+with\s+(?:a\s+)?(?:professional|expert|advisor)`),
	regexp.MustCompile(`(?i)\b(?:attorney|lawyer|CPA|accountant|financial\s+advisor)`),
	regexp.MustCompile(`(?i)\bdue\s+diligence\b`),
}

// ProfessionalConsultation requires substantial outputs to point the reader
// at qualified professionals.
var ProfessionalConsultation = Guardrail{
	Name: "require_professional_consultation",
	Check: func(text string) (bool, string) {
		if len(text) <= substantialOutputLength {
			return true, ""
		}
		for _, p := range consultationIndicatorPatterns {
			if p.MatchString(text) {
				return true, ""
			}
		}
		return false, "Output does not recommend professional consultation. Add guidance such as 'Conduct " +
			"thorough due diligence', 'Consult with a qualified real estate attorney', 'Work with a licensed " +
			"CPA for tax implications', or 'Engage a professional inspector to assess property condition'."
	},
}

// ReportStructure requires the text to parse as markdown and to carry each of
// the named section headings. Matching is case-insensitive and tolerates extra
// heading text, so "Key Risks and Mitigations" satisfies "Key Risks".
func ReportStructure(sections ...string) Guardrail {
	return Guardrail{
		Name: "report_structure",
		Check: func(text string) (bool, string) {
			if !utils.ValidateMarkdown(text) {
				return false, "Output is not parseable as markdown. Produce the recommendation as GitHub " +
					"Flavored Markdown, starting immediately with headers."
			}

			// Judge the salvaged content: an outer code fence is stripped the
			// same way the report parser strips it.
			headings := utils.ExtractHeadings(utils.CleanMarkdown(text))
			var missing []string
			for _, want := range sections {
				found := false
				for _, h := range headings {
					if strings.Contains(strings.ToLower(h), strings.ToLower(want)) {
						found = true
						break
					}
				}
				if !found {
					missing = append(missing, want)
				}
			}
			if len(missing) > 0 {
				return false, fmt.Sprintf("Report is missing required sections: %s. Structure the "+
					"recommendation under a markdown heading for each of: %s.",
					strings.Join(missing, ", "), strings.Join(sections, ", "))
			}
			return true, ""
		},
	}
}
