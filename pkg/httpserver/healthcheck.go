package httpserver

import (
	"context"
	"net/http"
)

// HealthHandler aggregates probe closures into one endpoint: 200 when every
// probe passes, 503 with the failing probe's name otherwise.
func HealthHandler(probes map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for name, probe := range probes {
			if err := probe(r.Context()); err != nil {
				http.Error(w, name+": "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
