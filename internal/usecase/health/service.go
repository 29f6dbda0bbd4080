package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy means the database answers. Signing switched off still counts as healthy.
	Healthy Status = "ok"
	// Unavailable means the database cannot be reached, so nothing can be stored.
	Unavailable Status = "unavailable"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled marks a component switched off by configuration. It is not a failure.
	CheckDisabled CheckResult = "disabled"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	signature SignatureState
}

// New creates a Service. signature can be nil.
func New(db DBPinger, signature SignatureState) *Service {
	return &Service{db: db, signature: signature}
}

// Check pings the database and reports the signing state. Only the database can fail.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.signature != nil {
		if s.signature.Enabled() {
			checks["signature"] = CheckOK
		} else {
			checks["signature"] = CheckDisabled
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Unavailable
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
