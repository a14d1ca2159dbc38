package domain

// Check is the result of a single health probe.
type Check struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
}

// HealthChecks groups the CRM health probes.
type HealthChecks struct {
	APIEndpoint Check `json:"api_endpoint"`
	Network     Check `json:"network"`
	Auth        Check `json:"auth"`
}

// HealthReport is the outcome of a CRM health check.
type HealthReport struct {
	Timestamp string       `json:"timestamp"`
	Service   string       `json:"service"`
	Checks    HealthChecks `json:"checks"`
	Status    CheckStatus  `json:"status"`
	Summary   string       `json:"summary,omitempty"`
	Message   string       `json:"message,omitempty"`
}

// NewHealthReport returns a report with every check unknown.
func NewHealthReport(timestamp string) *HealthReport {
	unknown := Check{Status: CheckUnknown}
	return &HealthReport{
		Timestamp: timestamp,
		Service:   "CRM Health Check",
		Checks:    HealthChecks{APIEndpoint: unknown, Network: unknown, Auth: unknown},
	}
}

// Finalize computes the overall status and summary from the checks.
func (r *HealthReport) Finalize() {
	all := []Check{r.Checks.APIEndpoint, r.Checks.Network, r.Checks.Auth}
	hasError, hasWarning := false, false
	for _, c := range all {
		switch c.Status {
		case CheckError:
			hasError = true
		case CheckWarning:
			hasWarning = true
		}
	}
	switch {
	case hasError:
		r.Status = CheckError
		r.Summary = "Health check failed - see individual checks for details"
	case hasWarning:
		r.Status = CheckWarning
		r.Summary = "Health check passed with warnings"
	default:
		r.Status = CheckOK
		r.Summary = "All health checks passed"
	}
}
