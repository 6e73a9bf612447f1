package model

import "time"

// AnnouncementType 公告类型
type AnnouncementType string

// 公告类型
const (
	AnnouncementMaintenance AnnouncementType = "MAINTENANCE"
	AnnouncementIncident    AnnouncementType = "INCIDENT"
	AnnouncementNews        AnnouncementType = "NEWS"
	AnnouncementAlert       AnnouncementType = "ALERT"
)

// AnnouncementTypes 所有公告类型
var AnnouncementTypes = []AnnouncementType{
	AnnouncementMaintenance,
	AnnouncementIncident,
	AnnouncementNews,
	AnnouncementAlert,
}

// Valid 是否为已知类型
func (t AnnouncementType) Valid() bool {
	for _, v := range AnnouncementTypes {
		if v == t {
			return true
		}
	}
	return false
}

// AnnouncementStatus 公告状态
type AnnouncementStatus string

// 公告状态
const (
	AnnouncementDraft     AnnouncementStatus = "DRAFT"
	AnnouncementScheduled AnnouncementStatus = "SCHEDULED"
	AnnouncementPublished AnnouncementStatus = "PUBLISHED"
	AnnouncementArchived  AnnouncementStatus = "ARCHIVED"
)

// Valid 是否为已知状态
func (s AnnouncementStatus) Valid() bool {
	switch s {
	case AnnouncementDraft, AnnouncementScheduled, AnnouncementPublished, AnnouncementArchived:
		return true
	}
	return false
}

// Announcement 公告模型
type Announcement struct {
	ID          int64                `db:"id" json:"id"`
	CompanyID   int64                `db:"company_id" json:"company_id"`
	AuthorID    int64                `db:"author_id" json:"author_id"`
	Title       string               `db:"title" json:"title"`
	Content     string               `db:"content" json:"content"`
	Type        AnnouncementType     `db:"type" json:"type"`
	Status      AnnouncementStatus   `db:"status" json:"status"`
	Metadata    AnnouncementMetadata `db:"metadata" json:"metadata"`
	PublishedAt *time.Time           `db:"published_at" json:"published_at"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updated_at"`
}

// Editable 草稿和待发布的公告可以编辑
func (a *Announcement) Editable() bool {
	return a.Status == AnnouncementDraft || a.Status == AnnouncementScheduled
}

// Deletable 草稿和已归档的公告可以删除
func (a *Announcement) Deletable() bool {
	return a.Status == AnnouncementDraft || a.Status == AnnouncementArchived
}

// PaginatedAnnouncements 分页公告结果
type PaginatedAnnouncements struct {
	Total int64          `json:"total"`
	Items []Announcement `json:"items"`
}
