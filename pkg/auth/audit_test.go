package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MannuMourya/Learner-API/pkg/contextkeys"
	"github.com/MannuMourya/Learner-API/pkg/observability"
)

func TestAuditLogger_LogEvent(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(observability.NewLogger(observability.InfoLevel, &buf))

	ctx := contextkeys.WithRequestID(context.Background(), "req-1")
	err := al.LogEvent(ctx, AuditEvent{
		Action: ActionLogin,
		Status: StatusFailure,
		Email:  "a@x.com",
		Reason: "invalid_credentials",
	})
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, true, entry["audit"])
	assert.Equal(t, ActionLogin, entry["action"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "invalid_credentials", entry["reason"])
	assert.NotContains(t, entry, "user_id")
}

func TestAuditLogger_Validation(t *testing.T) {
	al := NewAuditLogger(observability.NewNopLogger())

	assert.Error(t, al.LogEvent(context.Background(), AuditEvent{Status: StatusSuccess}))
	assert.Error(t, al.LogEvent(context.Background(), AuditEvent{Action: ActionRegister}))
	assert.NoError(t, al.LogEvent(context.Background(), AuditEvent{Action: ActionRegister, Status: StatusSuccess}))
}
