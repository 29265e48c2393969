package mailer

import (
	"bytes"
	"context"
	"testing"

	"coursebundler/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage("Course Bundler <noreply@example.com>", domain.Mail{
		To:      []string{"admin@example.com"},
		ReplyTo: "ann@example.com",
		Subject: "Contact from CourseBundler",
		Body:    "hello",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Contact from CourseBundler")
	assert.Contains(t, raw, "Reply-To:")
	assert.Contains(t, raw, "ann@example.com")
	assert.Contains(t, raw, "hello")
}

func TestBuildMessageRejectsBadInput(t *testing.T) {
	_, err := buildMessage("noreply@example.com", domain.Mail{Subject: "x"})
	assert.Error(t, err)

	_, err = buildMessage("noreply@example.com", domain.Mail{To: []string{"not an address"}})
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core).Sugar())

	require.NoError(t, m.Send(context.Background(), domain.Mail{To: []string{"a@b.c"}, Subject: "Reset Password"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Reset Password", logs.All()[0].ContextMap()["subject"])
}
