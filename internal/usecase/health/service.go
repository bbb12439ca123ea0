package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results and index occupancy.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Sizes  map[string]int
}

// Service coordinates health checks.
type Service struct {
	embedding EmbeddingChecker
	cache     CachePinger
	sparse    IndexSizer
	dense     IndexSizer
}

// New creates a Service. cache can be nil when no shared cache store is
// configured.
func New(embedding EmbeddingChecker, cache CachePinger, sparse, dense IndexSizer) *Service {
	return &Service{embedding: embedding, cache: cache, sparse: sparse, dense: dense}
}

// Check runs health checks against all components. Index lookups stay local,
// so an unreachable provider degrades the report without failing it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.embedding.HealthCheck(ctx); err != nil {
		checks["embedding"] = CheckError
	} else {
		checks["embedding"] = CheckOK
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{
		Status: status,
		Checks: checks,
		Sizes: map[string]int{
			"sparse": s.sparse.Size(),
			"dense":  s.dense.Size(),
		},
	}
}
