package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/model"
)

func TestLoadExampleFixtures(t *testing.T) {
	f, err := Load("../../cmd/helpdeskctl/fixtures.example.yaml")
	require.NoError(t, err)

	require.NotNil(t, f.PlatformAdmin)
	assert.Equal(t, "admin@helpdesk.local", f.PlatformAdmin.Email)
	require.Len(t, f.Companies, 2)

	acme := f.Companies[0]
	assert.Len(t, acme.Agents, 2)
	require.Len(t, acme.Announcements, 4)

	seen := map[string]bool{}
	for _, a := range acme.Announcements {
		seen[a.Type] = true
	}
	for _, typ := range []model.AnnouncementType{model.AnnouncementMaintenance, model.AnnouncementIncident, model.AnnouncementNews, model.AnnouncementAlert} {
		assert.True(t, seen[string(typ)], typ)
	}

	alert := acme.Announcements[3]
	assert.Equal(t, "schedule", alert.Action)
	assert.Equal(t, 24*time.Hour, alert.ScheduledIn)

	meta, err := acme.Announcements[0].metadata()
	require.NoError(t, err)
	require.NotNil(t, meta.ScheduledStart)
	assert.Equal(t, 2, meta.ScheduledStart.Hour())
	assert.Equal(t, []string{"api", "dashboard"}, meta.AffectedServices)

	news, err := acme.Announcements[2].metadata()
	require.NoError(t, err)
	require.NotNil(t, news.CallToAction)
	assert.Equal(t, "https://acme.example/docs/audit-export", news.CallToAction.URL)
}

func TestParseRejectsInvalidMetadata(t *testing.T) {
	raw := []byte(`
companies:
  - name: Broken
    support_email: b@example.com
    admin: {email: a@example.com, name: A, password: secret123}
    announcements:
      - title: Bad window
        type: MAINTENANCE
        content: maintenance content
        metadata:
          urgency: LOW
          is_emergency: false
          scheduled_start: "2025-04-01T04:00:00Z"
          scheduled_end: "2025-04-01T02:00:00Z"
`)
	_, err := Parse(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad window")
}

func TestParseRejectsUnknownType(t *testing.T) {
	raw := []byte(`
companies:
  - name: Broken
    support_email: b@example.com
    admin: {email: a@example.com}
    announcements:
      - title: Mystery
        type: RUMOUR
`)
	_, err := Parse(raw)
	require.Error(t, err)
}

func TestParseRequiresCompanyAdmin(t *testing.T) {
	_, err := Parse([]byte("companies:\n  - name: Lonely\n    support_email: l@example.com\n"))
	require.Error(t, err)
}
