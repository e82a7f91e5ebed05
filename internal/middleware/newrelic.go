package middleware

import (
	"net/http"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicMiddleware records one New Relic web transaction per request. A nil
// app disables it.
func NewRelicMiddleware(app *newrelic.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if app == nil {
				next.ServeHTTP(w, r)
				return
			}

			txn := app.StartTransaction(r.Method + " " + r.URL.Path)
			defer txn.End()

			txn.SetWebRequestHTTP(r)
			w = txn.SetWebResponse(w)

			// Add transaction to context
			r = newrelic.RequestWithTransactionContext(r, txn)

			next.ServeHTTP(w, r)

			// chi only knows the pattern once routing finished
			if pattern := routePattern(r); pattern != "unmatched" {
				txn.SetName(r.Method + " " + pattern)
			}
		})
	}
}
