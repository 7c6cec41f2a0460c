package internal

import "expvar"

var (
	requestsTotal = expvar.NewMap("reviewhooks_requests_total")
	outcomesTotal = expvar.NewMap("reviewhooks_outcomes_total")
	failuresTotal = expvar.NewMap("reviewhooks_failures_total")
)

// IncRequest counts a webhook delivery for provider ("unknown" when no route matched).
func IncRequest(provider string) {
	requestsTotal.Add(provider, 1)
}

// IncOutcome counts a response by its status field.
func IncOutcome(status string) {
	outcomesTotal.Add(status, 1)
}

// IncFailure counts a failed pipeline stage: signature, fetch, review or post.
func IncFailure(stage string) {
	failuresTotal.Add(stage, 1)
}
