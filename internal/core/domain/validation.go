package domain

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type FileValidationResult struct {
	IsValid   bool           `json:"is_valid"`
	Message   string         `json:"message"`
	RiskLevel RiskLevel      `json:"risk_level"`
	Details   map[string]any `json:"details,omitempty"`
}

// Blocking reports whether the risk warrants refusing the request outright
// rather than asking the user to fix it.
func (r FileValidationResult) Blocking() bool {
	return !r.IsValid && (r.RiskLevel == RiskHigh || r.RiskLevel == RiskCritical)
}

// ValidationError carries a failed FileValidationResult through error returns.
// It matches ErrForbidden when the risk is blocking and ErrInvalidInput otherwise.
type ValidationError struct {
	Result FileValidationResult
}

func (e *ValidationError) Error() string {
	return "file validation failed: " + e.Result.Message
}

func (e *ValidationError) Unwrap() error {
	if e.Result.Blocking() {
		return ErrForbidden
	}
	return ErrInvalidInput
}
