package screening

// =============================================================================
// GRADING BANDS
// Qualitative bands for individual metrics, independent of strategy. The
// composite deal score weighs these; reports may also surface them directly.
// =============================================================================

// Band is a qualitative grade for a single metric.
type Band string

const (
	BandExcellent  Band = "excellent"
	BandGood       Band = "good"
	BandAcceptable Band = "acceptable"
	BandPoor       Band = "poor"

	BandStrong   Band = "strong"
	BandAdequate Band = "adequate"
	BandWeak     Band = "weak"

	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// GradeCapRate bands a cap rate fraction: 8%+ excellent, 6%+ good,
// 4%+ acceptable, below that poor.
func GradeCapRate(capRate float64) Band {
	switch {
	case capRate >= 0.08:
		return BandExcellent
	case capRate >= 0.06:
		return BandGood
	case capRate >= 0.04:
		return BandAcceptable
	}
	return BandPoor
}

// GradeCashOnCash bands a cash-on-cash fraction: 12%+ excellent, 8%+ good,
// 5%+ acceptable, below that poor.
func GradeCashOnCash(coc float64) Band {
	switch {
	case coc >= 0.12:
		return BandExcellent
	case coc >= 0.08:
		return BandGood
	case coc >= 0.05:
		return BandAcceptable
	}
	return BandPoor
}

// GradeDSCR bands a debt service coverage ratio: 1.25+ strong,
// 1.15+ adequate, below that weak.
func GradeDSCR(dscr float64) Band {
	switch {
	case dscr >= 1.25:
		return BandStrong
	case dscr >= 1.15:
		return BandAdequate
	}
	return BandWeak
}

// GradeVacancyPercent bands an expected vacancy rate given in percent:
// up to 5 low, up to 8 medium, above that high.
func GradeVacancyPercent(vacancy float64) Band {
	switch {
	case vacancy <= 5.0:
		return BandLow
	case vacancy <= 8.0:
		return BandMedium
	}
	return BandHigh
}

// =============================================================================
// RECOMMENDATION BANDS
// =============================================================================

// Recommendation is the banded label for a composite deal score.
type Recommendation string

const (
	RecommendStrongBuy      Recommendation = "STRONG BUY"
	RecommendBuy            Recommendation = "BUY"
	RecommendConditionalBuy Recommendation = "CONDITIONAL BUY"
	RecommendHold           Recommendation = "HOLD"
	RecommendPass           Recommendation = "PASS"
)

// RecommendForScore maps a 0..100 composite score onto its recommendation
// band: 80+ strong buy, 60+ buy, 40+ conditional buy, 20+ hold, else pass.
func RecommendForScore(score int) Recommendation {
	switch {
	case score >= 80:
		return RecommendStrongBuy
	case score >= 60:
		return RecommendBuy
	case score >= 40:
		return RecommendConditionalBuy
	case score >= 20:
		return RecommendHold
	}
	return RecommendPass
}

// ScoreFloor returns the minimum composite score of a recommendation band,
// for consumers that chart recommendations on a numeric axis.
func ScoreFloor(r Recommendation) int {
	switch r {
	case RecommendStrongBuy:
		return 80
	case RecommendBuy:
		return 60
	case RecommendConditionalBuy:
		return 40
	case RecommendHold:
		return 20
	}
	return 0
}
