package models

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

type FlagSeverity string

const (
	SeverityLow    FlagSeverity = "LOW"
	SeverityMedium FlagSeverity = "MEDIUM"
	SeverityHigh   FlagSeverity = "HIGH"
)

type RiskFlag struct {
	Type        string            `json:"type"`
	Severity    FlagSeverity      `json:"severity"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// RiskAssessment is an ephemeral value computed per check; it is not an
// entity of record. Level and the two booleans derive from the score alone.
type RiskAssessment struct {
	RiskScore            int        `json:"risk_score"`
	RiskLevel            RiskLevel  `json:"risk_level"`
	Flags                []RiskFlag `json:"flags"`
	RequiresManualReview bool       `json:"requires_manual_review"`
	AllowBooking         bool       `json:"allow_booking"`
}

// Classification boundaries. The same set applies everywhere a score is
// turned into a level.
const (
	riskMediumFloor   = 25
	riskHighFloor     = 50
	riskCriticalFloor = 75
)

func ClassifyRiskScore(score int) RiskLevel {
	switch {
	case score < riskMediumFloor:
		return RiskLow
	case score < riskHighFloor:
		return RiskMedium
	case score < riskCriticalFloor:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// NewRiskAssessment derives level, allow and review decisions from the score.
// LOW and MEDIUM allow the booking; HIGH and CRITICAL block it and require
// manual review.
func NewRiskAssessment(score int, flags []RiskFlag) RiskAssessment {
	level := ClassifyRiskScore(score)
	blocked := level == RiskHigh || level == RiskCritical
	if flags == nil {
		flags = []RiskFlag{}
	}
	return RiskAssessment{
		RiskScore:            score,
		RiskLevel:            level,
		Flags:                flags,
		RequiresManualReview: blocked,
		AllowBooking:         !blocked,
	}
}
