package types

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, registerOn(v))
	return v
}

func TestAnnouncementTypeRule(t *testing.T) {
	v := newValidator(t)

	req := CreateAnnouncementRequest{
		Title:    "Planned maintenance",
		Content:  "Database upgrade tonight",
		Type:     "MAINTENANCE",
		Metadata: json.RawMessage(`{}`),
	}
	assert.NoError(t, v.Struct(req))

	req.Type = "PROMO"
	msgs := ValidationMessages(v.Struct(req))
	assert.Contains(t, msgs, "type")
}

func TestOwnerFilterRule(t *testing.T) {
	v := newValidator(t)

	for _, ok := range []string{"", "null", "me", "12"} {
		assert.NoError(t, v.Struct(TicketListQuery{OwnerAgentID: ok}), ok)
	}
	for _, bad := range []string{"nobody", "-1", "0"} {
		assert.Error(t, v.Struct(TicketListQuery{OwnerAgentID: bad}), bad)
	}
}

func TestValidationMessagesUseJSONNames(t *testing.T) {
	v := newValidator(t)

	msgs := ValidationMessages(v.Struct(RegisterRequest{Email: "not-an-email", Name: "A", Password: "short"}))
	assert.Equal(t, "邮箱格式不正确", msgs["email"])
	assert.Equal(t, "长度不能少于2个字符", msgs["name"])
	assert.Equal(t, "长度不能少于8个字符", msgs["password"])
}

func TestPointerFieldsAreOptional(t *testing.T) {
	v := newValidator(t)
	assert.NoError(t, v.Struct(UpdateArticleRequest{}))

	short := "ab"
	msgs := ValidationMessages(v.Struct(UpdateArticleRequest{Title: &short}))
	assert.Contains(t, msgs, "title")
}

func TestValidationMessagesIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, ValidationMessages(assert.AnError))
}
