package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/pkg/logger"
)

type captured struct {
	to, subject, body string
}

func newCapturingService() (*Service, *[]captured) {
	var sent []captured
	s := NewServiceWithSender(logger.NewNop(), func(to, subject, body string) error {
		sent = append(sent, captured{to, subject, body})
		return nil
	})
	return s, &sent
}

func TestSendCompanyApprovedWithPassword(t *testing.T) {
	s, sent := newCapturingService()

	err := s.SendCompanyApproved("admin@acme.test", "Acme", "REQ-2025-00001", "Tmp-Pass-123")
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	mail := (*sent)[0]
	assert.Equal(t, "admin@acme.test", mail.to)
	assert.Contains(t, mail.subject, "已通过")
	assert.Contains(t, mail.body, "Tmp-Pass-123")
	assert.Contains(t, mail.body, "REQ-2025-00001")
}

func TestSendCompanyApprovedExistingAccount(t *testing.T) {
	s, sent := newCapturingService()

	require.NoError(t, s.SendCompanyApproved("admin@acme.test", "Acme", "REQ-2025-00001", ""))
	assert.NotContains(t, (*sent)[0].body, "临时密码")
}

func TestSendTicketAssignedEscapesTitle(t *testing.T) {
	s, sent := newCapturingService()

	require.NoError(t, s.SendTicketAssigned("agent@acme.test", "Ana", "TKT-2025-00009", "<script>x</script>"))
	mail := (*sent)[0]
	assert.Contains(t, mail.subject, "TKT-2025-00009")
	assert.NotContains(t, mail.body, "<script>")
}

func TestBuildMessageHeaders(t *testing.T) {
	s := NewService(Config{From: "noreply@helpdesk.test", FromName: "Helpdesk"}, logger.NewNop())

	msg := s.buildMessage("u@x.test", "Hi", "<p>body</p>")
	assert.Contains(t, msg, "From: Helpdesk <noreply@helpdesk.test>\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, msg, "\r\n\r\n<p>body</p>")
}

func TestSendSMTPWithoutHostIsSkipped(t *testing.T) {
	s := NewService(Config{}, logger.NewNop())
	assert.NoError(t, s.SendCompanyRejected("x@y.test", "Acme", "REQ-1", "incomplete data"))
}

func TestSendPasswordResetCode(t *testing.T) {
	s, sent := newCapturingService()

	require.NoError(t, s.SendPasswordResetCode("ann@example.test", "Ann", "042817", 15))
	require.Len(t, *sent, 1)

	mail := (*sent)[0]
	assert.Equal(t, "ann@example.test", mail.to)
	assert.Contains(t, mail.subject, "密码重置")
	assert.Contains(t, mail.body, "042817")
	assert.Contains(t, mail.body, "15 分钟")
}
