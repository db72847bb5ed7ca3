// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, aspects)
//	httputil.WriteNotFoundError(w, "aspect not found")
//	httputil.WriteDetailedError(w, http.StatusUnprocessableEntity, err, details)
//
// # Request Parsing
//
//	name, ok := httputil.ParsePathStringOrError(w, r, "name")
//	names := httputil.ParseQueryList(r, "fieldName")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(10*1024*1024),
//	)
package httputil
