package identity

// Result is the outcome of validating a reviewer email address. Score is an
// additive confidence signal in [-60, 30]; Valid summarizes the threshold
// and the disposable check. The trust engine consumes Valid only; the rest
// is reporting.
type Result struct {
	Valid              bool     `json:"valid"`
	Score              int      `json:"score"`
	SyntaxValid        bool     `json:"syntax_valid"`
	MXValid            bool     `json:"mx_valid"`
	Disposable         bool     `json:"disposable"`
	SuspiciousPattern  bool     `json:"suspicious_pattern"`
	EstimatedAgeMonths int      `json:"estimated_age_months"`
	Flags              []string `json:"flags,omitempty"`
}

// Validity threshold: accumulated score required before an address counts
// as plausible.
const validThreshold = 10
