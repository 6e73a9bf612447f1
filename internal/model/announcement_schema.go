package model

// MetadataField 元数据字段说明
type MetadataField struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Values      []string `json:"values,omitempty"`
	Description string   `json:"description"`
}

// AnnouncementSchema 某一公告类型的元数据结构
type AnnouncementSchema struct {
	Type   AnnouncementType `json:"type"`
	Fields []MetadataField  `json:"fields"`
}

var affectedServicesField = MetadataField{Name: "affected_services", Type: "string[]", Description: "受影响的服务，最多20项"}

// AnnouncementSchemas 各公告类型的元数据字段定义，与Validate保持一致
func AnnouncementSchemas() []AnnouncementSchema {
	return []AnnouncementSchema{
		{
			Type: AnnouncementMaintenance,
			Fields: []MetadataField{
				{Name: "urgency", Type: "enum", Required: true, Values: MaintenanceUrgencies, Description: "紧急程度"},
				{Name: "scheduled_start", Type: "datetime", Required: true, Description: "计划开始时间"},
				{Name: "scheduled_end", Type: "datetime", Required: true, Description: "计划结束时间，晚于开始时间"},
				{Name: "is_emergency", Type: "bool", Required: true, Description: "是否紧急维护"},
				affectedServicesField,
				{Name: "actual_start", Type: "datetime", Description: "实际开始时间，由开始维护操作写入"},
				{Name: "actual_end", Type: "datetime", Description: "实际结束时间，由完成维护操作写入"},
			},
		},
		{
			Type: AnnouncementIncident,
			Fields: []MetadataField{
				{Name: "urgency", Type: "enum", Required: true, Values: IncidentUrgencies, Description: "紧急程度"},
				{Name: "is_resolved", Type: "bool", Required: true, Description: "是否已解决"},
				{Name: "started_at", Type: "datetime", Required: true, Description: "故障开始时间"},
				{Name: "resolved_at", Type: "datetime", Description: "解决时间，已解决时必填"},
				{Name: "resolution_content", Type: "string", Description: "解决说明，已解决时必填"},
				{Name: "ended_at", Type: "datetime", Description: "结束时间，晚于开始时间"},
				affectedServicesField,
			},
		},
		{
			Type: AnnouncementNews,
			Fields: []MetadataField{
				{Name: "news_type", Type: "enum", Required: true, Values: NewsTypes, Description: "新闻类别"},
				{Name: "target_audience", Type: "enum[]", Required: true, Values: NewsAudiences, Description: "目标受众，1到5项"},
				{Name: "summary", Type: "string", Required: true, Description: "摘要，10到500个字符"},
				{Name: "call_to_action", Type: "object{text,url}", Description: "行动按钮，url必须为https"},
			},
		},
		{
			Type: AnnouncementAlert,
			Fields: []MetadataField{
				{Name: "urgency", Type: "enum", Required: true, Values: AlertUrgencies, Description: "紧急程度"},
				{Name: "alert_type", Type: "enum", Required: true, Values: AlertTypes, Description: "告警类别"},
				{Name: "message", Type: "string", Required: true, Description: "告警内容，10到500个字符"},
				{Name: "action_required", Type: "bool", Required: true, Description: "是否需要用户处理"},
				{Name: "action_description", Type: "string", Description: "处理说明，需要处理时必填"},
				{Name: "started_at", Type: "datetime", Required: true, Description: "开始时间"},
				{Name: "ended_at", Type: "datetime", Description: "结束时间，晚于开始时间"},
				affectedServicesField,
			},
		},
	}
}
