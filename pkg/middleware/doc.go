// Package middleware provides HTTP middleware for admission control,
// authentication, and role checks.
//
// # Middleware Components
//
// RateLimitMiddleware: fixed-window admission per client address
//
//	limiter := middleware.NewAdmissionLimiter(middleware.AdmissionConfig{
//		MaxRequests: 100,
//		Window:      time.Minute,
//	})
//	router.Use(middleware.NewRateLimitMiddleware(limiter, logger, metrics, false).Handler)
//
// Rejections are 429 {"detail":"Rate limit exceeded"} with Retry-After and
// X-RateLimit-* headers. Expired windows are reclaimed by Sweep, which the
// server schedules periodically.
//
// AuthMiddleware: identity resolution from Authorization: Bearer or X-API-Key
//
//	authn := middleware.NewAuthMiddleware(resolver, logger, metrics)
//	router.Handle("/whoami", authn.Handler(whoami))
//	router.Handle("/admin/stats", authn.Handler(authn.RequireRole(auth.RoleAdmin)(stats)))
//
// Any resolution failure is 401 {"detail":"Not authenticated"}; a role
// mismatch is 403 {"detail":"Forbidden"}.
//
// # Related Packages
//
//   - pkg/auth: Resolver, roles and the error taxonomy
//   - pkg/httputil: response helpers
package middleware
