package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"helpdesk/internal/constants"
)

// 元数据枚举值
var (
	MaintenanceUrgencies = []string{"LOW", "MEDIUM", "HIGH"}
	IncidentUrgencies    = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}
	AlertUrgencies       = []string{"HIGH", "CRITICAL"}
	AlertTypes           = []string{"security", "system", "service", "compliance"}
	NewsTypes            = []string{"feature_release", "policy_update", "general_update"}
	NewsAudiences        = []string{"users", "agents", "admins"}
)

const (
	maxAffectedServices = 20
	maxTargetAudience   = 5
)

// CallToAction 新闻公告的行动按钮
type CallToAction struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// AnnouncementMetadata 公告元数据，有效字段由公告类型决定，见Normalize
type AnnouncementMetadata struct {
	// 所有类型
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`

	// MAINTENANCE / INCIDENT / ALERT
	Urgency          string   `json:"urgency,omitempty"`
	AffectedServices []string `json:"affected_services,omitempty"`

	// MAINTENANCE
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	IsEmergency    *bool      `json:"is_emergency,omitempty"`
	ActualStart    *time.Time `json:"actual_start,omitempty"`
	ActualEnd      *time.Time `json:"actual_end,omitempty"`

	// INCIDENT / ALERT
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// INCIDENT
	IsResolved        *bool      `json:"is_resolved,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	ResolutionContent string     `json:"resolution_content,omitempty"`

	// NEWS
	NewsType       string        `json:"news_type,omitempty"`
	TargetAudience []string      `json:"target_audience,omitempty"`
	Summary        string        `json:"summary,omitempty"`
	CallToAction   *CallToAction `json:"call_to_action,omitempty"`

	// ALERT
	AlertType         string `json:"alert_type,omitempty"`
	Message           string `json:"message,omitempty"`
	ActionRequired    *bool  `json:"action_required,omitempty"`
	ActionDescription string `json:"action_description,omitempty"`
}

// Value 实现driver.Valuer，以JSON存储
func (m AnnouncementMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现sql.Scanner
func (m *AnnouncementMetadata) Scan(src interface{}) error {
	*m = AnnouncementMetadata{}

	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, m)
}

// Normalize 只保留该公告类型的字段
func (m AnnouncementMetadata) Normalize(t AnnouncementType) AnnouncementMetadata {
	out := AnnouncementMetadata{ScheduledFor: m.ScheduledFor}

	switch t {
	case AnnouncementMaintenance:
		out.Urgency = m.Urgency
		out.AffectedServices = m.AffectedServices
		out.ScheduledStart = m.ScheduledStart
		out.ScheduledEnd = m.ScheduledEnd
		out.IsEmergency = m.IsEmergency
		out.ActualStart = m.ActualStart
		out.ActualEnd = m.ActualEnd
	case AnnouncementIncident:
		out.Urgency = m.Urgency
		out.AffectedServices = m.AffectedServices
		out.IsResolved = m.IsResolved
		out.StartedAt = m.StartedAt
		out.ResolvedAt = m.ResolvedAt
		out.EndedAt = m.EndedAt
		out.ResolutionContent = m.ResolutionContent
	case AnnouncementNews:
		out.NewsType = m.NewsType
		out.TargetAudience = m.TargetAudience
		out.Summary = m.Summary
		out.CallToAction = m.CallToAction
	case AnnouncementAlert:
		out.Urgency = m.Urgency
		out.AffectedServices = m.AffectedServices
		out.AlertType = m.AlertType
		out.Message = m.Message
		out.ActionRequired = m.ActionRequired
		out.ActionDescription = m.ActionDescription
		out.StartedAt = m.StartedAt
		out.EndedAt = m.EndedAt
	}
	return out
}

// Validate 按公告类型校验元数据，返回nil或*constants.ValidationError
func (m AnnouncementMetadata) Validate(t AnnouncementType) error {
	v := &constants.ValidationError{}

	switch t {
	case AnnouncementMaintenance:
		checkEnum(v, "urgency", m.Urgency, MaintenanceUrgencies)
		checkRequiredTime(v, "scheduled_start", m.ScheduledStart)
		checkRequiredTime(v, "scheduled_end", m.ScheduledEnd)
		checkAfter(v, "scheduled_end", m.ScheduledEnd, m.ScheduledStart, "scheduled_start")
		if m.IsEmergency == nil {
			v.Add("metadata.is_emergency", "is_emergency为必填项")
		}
		checkServices(v, m.AffectedServices)
		if m.ActualEnd != nil && m.ActualStart == nil {
			v.Add("metadata.actual_end", "actual_end需要先设置actual_start")
		}
		checkAfter(v, "actual_end", m.ActualEnd, m.ActualStart, "actual_start")

	case AnnouncementIncident:
		checkEnum(v, "urgency", m.Urgency, IncidentUrgencies)
		if m.IsResolved == nil {
			v.Add("metadata.is_resolved", "is_resolved为必填项")
		}
		checkRequiredTime(v, "started_at", m.StartedAt)
		if BoolValue(m.IsResolved) {
			checkRequiredTime(v, "resolved_at", m.ResolvedAt)
			if strings.TrimSpace(m.ResolutionContent) == "" {
				v.Add("metadata.resolution_content", "已解决的故障必须填写解决说明")
			}
		}
		if m.ResolvedAt != nil && m.StartedAt != nil && m.ResolvedAt.Before(*m.StartedAt) {
			v.Add("metadata.resolved_at", "resolved_at不能早于started_at")
		}
		checkAfter(v, "ended_at", m.EndedAt, m.StartedAt, "started_at")
		checkServices(v, m.AffectedServices)

	case AnnouncementNews:
		checkEnum(v, "news_type", m.NewsType, NewsTypes)
		switch {
		case len(m.TargetAudience) == 0:
			v.Add("metadata.target_audience", "target_audience至少包含一项")
		case len(m.TargetAudience) > maxTargetAudience:
			v.Add("metadata.target_audience", fmt.Sprintf("target_audience最多%d项", maxTargetAudience))
		default:
			for _, a := range m.TargetAudience {
				if !contains(NewsAudiences, a) {
					v.Add("metadata.target_audience", "target_audience取值必须为 "+strings.Join(NewsAudiences, ", "))
				}
			}
		}
		checkLength(v, "summary", m.Summary, 10, 500)
		if cta := m.CallToAction; cta != nil {
			if strings.TrimSpace(cta.Text) == "" {
				v.Add("metadata.call_to_action.text", "call_to_action.text为必填项")
			}
			if u, err := url.Parse(cta.URL); err != nil || u.Scheme != "https" || u.Host == "" {
				v.Add("metadata.call_to_action.url", "call_to_action.url必须是https链接")
			}
		}

	case AnnouncementAlert:
		checkEnum(v, "urgency", m.Urgency, AlertUrgencies)
		checkEnum(v, "alert_type", m.AlertType, AlertTypes)
		checkLength(v, "message", m.Message, 10, 500)
		if m.ActionRequired == nil {
			v.Add("metadata.action_required", "action_required为必填项")
		} else if *m.ActionRequired && strings.TrimSpace(m.ActionDescription) == "" {
			v.Add("metadata.action_description", "需要处理的告警必须填写action_description")
		}
		checkRequiredTime(v, "started_at", m.StartedAt)
		checkAfter(v, "ended_at", m.EndedAt, m.StartedAt, "started_at")
		checkServices(v, m.AffectedServices)

	default:
		v.Add("type", "未知的公告类型")
	}

	return v.OrNil()
}

// MergeMetadata 将补丁JSON覆盖到已有元数据上，补丁中的null表示删除该字段
func MergeMetadata(base AnnouncementMetadata, patch json.RawMessage) (AnnouncementMetadata, error) {
	if len(patch) == 0 {
		return base, nil
	}

	raw, err := json.Marshal(base)
	if err != nil {
		return base, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return base, err
	}

	changes := map[string]json.RawMessage{}
	if err := json.Unmarshal(patch, &changes); err != nil {
		return base, constants.NewValidationError("metadata", "metadata必须是JSON对象")
	}
	for k, val := range changes {
		if string(val) == "null" {
			delete(fields, k)
			continue
		}
		fields[k] = val
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return base, err
	}
	var out AnnouncementMetadata
	if err := json.Unmarshal(merged, &out); err != nil {
		return base, constants.NewValidationError("metadata", "metadata字段格式错误: "+err.Error())
	}
	return out, nil
}

// BoolValue 解引用布尔指针，nil视为false
func BoolValue(b *bool) bool {
	return b != nil && *b
}

// Bool 返回布尔指针
func Bool(b bool) *bool { return &b }

func checkEnum(v *constants.ValidationError, field, value string, allowed []string) {
	if value == "" {
		v.Add("metadata."+field, field+"为必填项")
		return
	}
	if !contains(allowed, value) {
		v.Add("metadata."+field, field+"取值必须为 "+strings.Join(allowed, ", "))
	}
}

func checkRequiredTime(v *constants.ValidationError, field string, t *time.Time) {
	if t == nil {
		v.Add("metadata."+field, field+"为必填项")
	}
}

// checkAfter 两个时间都存在时要求later严格晚于earlier
func checkAfter(v *constants.ValidationError, field string, later, earlier *time.Time, earlierField string) {
	if later != nil && earlier != nil && !later.After(*earlier) {
		v.Add("metadata."+field, field+"必须晚于"+earlierField)
	}
}

func checkLength(v *constants.ValidationError, field, value string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min || n > max {
		v.Add("metadata."+field, fmt.Sprintf("%s长度必须在%d到%d个字符之间", field, min, max))
	}
}

func checkServices(v *constants.ValidationError, services []string) {
	if len(services) > maxAffectedServices {
		v.Add("metadata.affected_services", fmt.Sprintf("affected_services最多%d项", maxAffectedServices))
		return
	}
	for _, s := range services {
		if strings.TrimSpace(s) == "" {
			v.Add("metadata.affected_services", "affected_services不能包含空值")
			return
		}
	}
}

func contains(list []string, value string) bool {
	for _, s := range list {
		if s == value {
			return true
		}
	}
	return false
}
