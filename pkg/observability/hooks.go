package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/castellan-go/castellan/pkg/auth"
)

// AuthHooks returns success/failure hooks for an auth.CallbackBackend that
// record authentication outcomes under the given backend label.
//
//	b, _ := basic.New(basic.Config{Loader: loader})
//	success, failure := observability.AuthHooks("basic")
//	instrumented, _ := auth.NewCallback(b, success, failure)
func AuthHooks(backend string) (auth.SuccessHook, auth.FailureHook) {
	success := func(_ context.Context, _ *http.Request, _ *auth.Result) {
		AuthAttemptsTotal.WithLabelValues(backend, "success").Inc()
	}
	failure := func(_ context.Context, _ *http.Request, err error) {
		reason := "error"
		var ae *auth.Error
		if errors.As(err, &ae) {
			reason = ae.Kind.String()
		}
		AuthAttemptsTotal.WithLabelValues(backend, reason).Inc()
		AuthRejectedTotal.WithLabelValues(backend, reason).Inc()
	}
	return success, failure
}
