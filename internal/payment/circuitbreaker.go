package payment

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// newCircuitBreaker trips after three or more calls with a 60% failure ratio.
// Client errors (4xx) count as successes so bad input cannot open the breaker.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	var st gobreaker.Settings
	st.Name = name
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && failureRatio >= 0.6
	}
	st.IsSuccessful = func(err error) bool {
		if err == nil {
			return true
		}
		var apiErr *APIError
		return errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError
	}

	return gobreaker.NewCircuitBreaker[[]byte](st)
}
