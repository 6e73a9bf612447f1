package repository

import (
	"context"
	"time"

	"helpdesk/internal/model"

	"github.com/jmoiron/sqlx"
)

const announcementColumns = `id, company_id, author_id, title, content, type, status, metadata, published_at, created_at, updated_at`

// AnnouncementFilter 公告列表条件
type AnnouncementFilter struct {
	// CompanyIDs 非nil时限定在这些企业内，空切片表示没有可见企业
	CompanyIDs      []int64
	CompanyID       int64
	Status          model.AnnouncementStatus
	Type            model.AnnouncementType
	Search          string
	PublishedAfter  *time.Time
	PublishedBefore *time.Time
	Sort            string
	Offset          int
	Limit           int
}

var announcementSorts = map[string]string{
	"-published_at": "published_at DESC, id DESC",
	"-created_at":   "created_at DESC, id DESC",
	"title":         "title ASC, id ASC",
}

// AnnouncementRepository 公告存储库
type AnnouncementRepository struct {
	base
}

// NewAnnouncementRepository 创建公告存储库实例
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{base{db: db}}
}

// Create 创建公告
func (r *AnnouncementRepository) Create(ctx context.Context, a *model.Announcement) error {
	query := `INSERT INTO announcements (company_id, author_id, title, content, type, status, metadata, published_at,
		scheduled_for, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	id, err := r.insert(ctx, query, a.CompanyID, a.AuthorID, a.Title, a.Content, a.Type, a.Status,
		a.Metadata, a.PublishedAt, a.Metadata.ScheduledFor)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// GetAnnouncementByID 根据ID获取公告
func (r *AnnouncementRepository) GetAnnouncementByID(ctx context.Context, id int64) (*model.Announcement, error) {
	a := &model.Announcement{}
	if err := r.get(ctx, a, `SELECT `+announcementColumns+` FROM announcements WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return a, nil
}

// Update 保存公告的可变字段，scheduled_for随metadata同步
func (r *AnnouncementRepository) Update(ctx context.Context, a *model.Announcement) error {
	query := `UPDATE announcements SET title = ?, content = ?, status = ?, metadata = ?, published_at = ?,
		scheduled_for = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.exec(ctx, query, a.Title, a.Content, a.Status, a.Metadata, a.PublishedAt,
		a.Metadata.ScheduledFor, a.ID)
	return err
}

// Delete 删除公告
func (r *AnnouncementRepository) Delete(ctx context.Context, id int64) error {
	return r.execAffected(ctx, `DELETE FROM announcements WHERE id = ?`, id)
}

// PublishIfScheduled 仅当公告仍为SCHEDULED且计划时间不晚于now时发布，返回是否发布成功。
// 元数据在库内去掉scheduled_for，不覆盖期间的编辑
func (r *AnnouncementRepository) PublishIfScheduled(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `UPDATE announcements SET status = ?, metadata = JSON_REMOVE(metadata, '$.scheduled_for'),
		published_at = ?, scheduled_for = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ? AND scheduled_for IS NOT NULL AND scheduled_for <= ?`
	result, err := r.exec(ctx, query, model.AnnouncementPublished, now, id, model.AnnouncementScheduled, now)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListDueScheduled 获取计划时间已到的待发布公告
func (r *AnnouncementRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Announcement, error) {
	items := []model.Announcement{}
	query := `SELECT ` + announcementColumns + ` FROM announcements
		WHERE status = ? AND scheduled_for IS NOT NULL AND scheduled_for <= ?
		ORDER BY scheduled_for ASC LIMIT ?`
	if err := r.sel(ctx, &items, query, model.AnnouncementScheduled, now, limit); err != nil {
		return nil, err
	}
	return items, nil
}

func (f AnnouncementFilter) conditions() conditions {
	var cond conditions
	if f.CompanyIDs != nil {
		cond.in("company_id", f.CompanyIDs)
	}
	if f.CompanyID > 0 {
		cond.add("company_id = ?", f.CompanyID)
	}
	if f.Status != "" {
		cond.add("status = ?", f.Status)
	}
	if f.Type != "" {
		cond.add("type = ?", f.Type)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		cond.add("(title LIKE ? OR content LIKE ?)", p, p)
	}
	if f.PublishedAfter != nil {
		cond.add("published_at >= ?", *f.PublishedAfter)
	}
	if f.PublishedBefore != nil {
		cond.add("published_at <= ?", *f.PublishedBefore)
	}
	return cond
}

// GetAnnouncements 按条件分页获取公告
func (r *AnnouncementRepository) GetAnnouncements(ctx context.Context, filter AnnouncementFilter) ([]model.Announcement, error) {
	cond := filter.conditions()
	order, ok := announcementSorts[filter.Sort]
	if !ok {
		order = announcementSorts["-published_at"]
	}

	query, args, err := cond.build(`SELECT `+announcementColumns+` FROM announcements`,
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	items := []model.Announcement{}
	if err := r.sel(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// CountAnnouncements 按条件统计公告数量
func (r *AnnouncementRepository) CountAnnouncements(ctx context.Context, filter AnnouncementFilter) (int64, error) {
	cond := filter.conditions()
	query, args, err := cond.build(`SELECT COUNT(*) FROM announcements`, "")
	if err != nil {
		return 0, err
	}
	var count int64
	if err := r.get(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}
