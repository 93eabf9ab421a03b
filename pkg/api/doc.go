// Package api provides the HTTP server for the Learner API.
//
// # Overview
//
// The server is built on gorilla/mux. Every request passes through panic
// recovery, request IDs, structured logging, optional tracing, CORS and a
// body size limit, then fixed-window admission control keyed by client
// address. /metrics is never rate limited.
//
// # API Endpoints
//
//	POST /auth/register  201 {id,email,role,api_key}; 400 duplicate email; 422 invalid body
//	POST /auth/login     200 {access_token,token_type,api_key}; 401 invalid credentials
//	GET  /whoami         identity required
//	GET  /admin/stats    admin role required
//	POST /tasks/heavy    identity required; 202 queued, 503 when the task pool is unavailable
//	GET  /health         liveness
//	GET  /ready          readiness, pings the database
//	GET  /metrics        Prometheus exposition
//
// Identity is presented as "Authorization: Bearer <token>" or "X-API-Key".
// A present API key is checked exclusively. Every identity failure is
// answered with 401 {"detail":"Not authenticated"}.
//
// # Usage
//
//	server := api.NewServer(api.Deps{
//		Accounts: accounts,
//		Resolver: resolver,
//		Limiter:  limiter,
//		Tasks:    pool,
//		Logger:   logger,
//		Metrics:  metrics,
//	}, api.Options{AllowedOrigins: []string{"*"}})
//	http.ListenAndServe(":8000", server)
//
// # Related Packages
//
//   - pkg/auth: accounts, tokens, identity resolution
//   - pkg/middleware: admission and identity middleware
//   - pkg/httputil: response helpers and generic middleware
package api
