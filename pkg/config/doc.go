// Package config loads service configuration.
//
// Values come from built-in defaults, then an optional YAML file named by
// LEARNER_CONFIG_FILE, then LEARNER_* environment variables. The result is
// validated once at startup and treated as immutable afterwards.
//
// Server settings:
//
//	LEARNER_HOST="0.0.0.0"
//	LEARNER_PORT="8000"
//	LEARNER_READ_TIMEOUT="15s"
//	LEARNER_ALLOWED_ORIGINS="https://a.example,https://b.example"
//	LEARNER_TRUST_PROXY_HEADERS="false"
//
// Credentials:
//
//	LEARNER_SECRET_KEY="..."                  # random per process when unset
//	LEARNER_ACCESS_TOKEN_EXPIRE_MINUTES="60"
//	LEARNER_BCRYPT_COST="10"
//
// Admission limiting:
//
//	LEARNER_RATE_LIMIT_REQ="100"
//	LEARNER_RATE_LIMIT_WINDOW_SECONDS="60"
//
// Database:
//
//	LEARNER_DB_DRIVER="postgres"              # postgres or sqlite3
//	LEARNER_DATABASE_URL="postgres://learner:learnerpwd@db:5432/learner_api?sslmode=disable"
//
// Observability:
//
//	LEARNER_LOG_LEVEL="info"
//	LEARNER_METRICS_ENABLED="true"
//	LEARNER_OTEL_ENABLED="false"
//	LEARNER_OTEL_ENDPOINT="localhost:4317"
//
// The YAML file uses the same structure with snake_case keys:
//
//	server:
//	  port: "9000"
//	rate_limit:
//	  requests: 5
//	  window_seconds: 10
package config
