// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
// Every error body has the shape {"detail": "..."}:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteUnauthorized(w, httputil.DetailNotAuthenticated)
//	httputil.WriteInternalError(w)
//
// Validation failures are 422 responses whose detail is a list of
// {loc, msg, type} entries.
//
// # Request Parsing
//
//	var req RegisterRequest
//	if !httputil.DecodeAndValidate(w, r, &req) {
//		return // 422 already written
//	}
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.CORSMiddleware([]string{"*"}),
//	)
//
// # Related Packages
//
//   - pkg/middleware: admission control and identity middleware
package httputil
