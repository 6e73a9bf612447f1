package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"

	"helpdesk/internal/constants"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
	"helpdesk/pkg/metrics"
	"helpdesk/pkg/sanitize"
)

const (
	publicFeedTTL    = 5 * time.Minute
	dueBatchSize     = 100
	minContentLength = 10
)

// 创建公告时的动作
const (
	ActionDraft    = "draft"
	ActionPublish  = "publish"
	ActionSchedule = "schedule"
)

// announcementStore 公告持久化，由*repository.AnnouncementRepository实现
type announcementStore interface {
	Create(ctx context.Context, a *model.Announcement) error
	GetAnnouncementByID(ctx context.Context, id int64) (*model.Announcement, error)
	Update(ctx context.Context, a *model.Announcement) error
	Delete(ctx context.Context, id int64) error
	PublishIfScheduled(ctx context.Context, id int64, now time.Time) (bool, error)
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Announcement, error)
	GetAnnouncements(ctx context.Context, filter repository.AnnouncementFilter) ([]model.Announcement, error)
	CountAnnouncements(ctx context.Context, filter repository.AnnouncementFilter) (int64, error)
}

// AnnouncementService 公告服务
type AnnouncementService struct {
	announcementRepo announcementStore
	audience         audienceScope
	redisClient      *redis.Client
	sanitizer        *sanitize.Sanitizer
	logger           *logger.Logger
	now              func() time.Time
}

// NewAnnouncementService 创建公告服务实例
func NewAnnouncementService(
	announcementRepo announcementStore,
	followerRepo repository.FollowerRepository,
	redisClient *redis.Client,
	sanitizer *sanitize.Sanitizer,
	logger *logger.Logger,
) *AnnouncementService {
	return &AnnouncementService{
		announcementRepo: announcementRepo,
		audience:         audienceScope{followers: followerRepo},
		redisClient:      redisClient,
		sanitizer:        sanitizer,
		logger:           logger,
		now:              time.Now,
	}
}

// Schemas 各类型公告的元数据结构说明
func (s *AnnouncementService) Schemas() []model.AnnouncementSchema {
	return model.AnnouncementSchemas()
}

// cleanContent 清洗正文，清洗后过短视为校验失败
func (s *AnnouncementService) cleanContent(content string) (string, error) {
	cleaned := s.sanitizer.HTML(content)
	if utf8.RuneCountInString(cleaned) < minContentLength {
		return "", constants.NewValidationError("content", fmt.Sprintf("长度不能少于%d个字符", minContentLength))
	}
	return cleaned, nil
}

// CreateAnnouncement 创建公告，总是以草稿创建后再按action流转
func (s *AnnouncementService) CreateAnnouncement(ctx context.Context, actor model.Actor, req types.CreateAnnouncementRequest) (*model.Announcement, error) {
	if actor.Role != model.RoleCompanyAdmin || actor.OwnCompanyID() == 0 {
		return nil, constants.ErrBizForbidden
	}

	annType := model.AnnouncementType(req.Type)
	content, err := s.cleanContent(req.Content)
	if err != nil {
		return nil, err
	}

	meta, err := model.MergeMetadata(model.AnnouncementMetadata{}, req.Metadata)
	if err != nil {
		return nil, err
	}
	meta = meta.Normalize(annType)
	// 实际维护时间只能由开始/完成维护操作写入
	meta.ActualStart, meta.ActualEnd = nil, nil

	a := &model.Announcement{
		CompanyID: actor.OwnCompanyID(),
		AuthorID:  actor.UserID,
		Title:     s.sanitizer.Text(req.Title),
		Content:   content,
		Type:      annType,
		Status:    model.AnnouncementDraft,
	}

	now := s.now()
	switch req.Action {
	case ActionPublish:
		meta.ScheduledFor = nil
		a.Status = model.AnnouncementPublished
		a.PublishedAt = &now
	case ActionSchedule:
		at := req.ScheduledFor
		if at == nil {
			at = meta.ScheduledFor
		}
		if at == nil {
			return nil, constants.NewValidationError("scheduled_for", "定时发布需要提供scheduled_for")
		}
		if !at.After(now) {
			return nil, constants.ErrBizScheduleInPast
		}
		meta.ScheduledFor = at
		a.Status = model.AnnouncementScheduled
	default:
		meta.ScheduledFor = nil
	}

	if err := meta.Validate(annType); err != nil {
		return nil, err
	}
	a.Metadata = meta

	if err := s.announcementRepo.Create(ctx, a); err != nil {
		s.logger.Error("创建公告失败", "company_id", a.CompanyID, "error", err)
		return nil, err
	}

	metrics.AnnouncementTransitions.WithLabelValues(string(a.Status)).Inc()
	s.invalidateCompany(ctx, a.CompanyID)
	s.logger.Info("公告已创建", "id", a.ID, "type", a.Type, "status", a.Status)
	return a, nil
}

// GetAnnouncementByID 按可见性获取公告，不可见时返回404
func (s *AnnouncementService) GetAnnouncementByID(ctx context.Context, actor model.Actor, id int64) (*model.Announcement, error) {
	a, err := s.announcementRepo.GetAnnouncementByID(ctx, id)
	if err != nil {
		return nil, notFound(err, constants.ErrBizAnnouncementNotFound)
	}

	switch {
	case actor.IsPlatformAdmin(), actor.IsCompanyAdminOf(a.CompanyID):
		return a, nil
	case actor.Role == model.RoleCompanyAdmin:
		return nil, constants.ErrBizAnnouncementNotFound
	}

	if a.Status != model.AnnouncementPublished {
		return nil, constants.ErrBizAnnouncementNotFound
	}
	ok, err := s.audience.canRead(ctx, actor, a.CompanyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, constants.ErrBizAnnouncementNotFound
	}
	return a, nil
}

// GetAnnouncements 按角色可见性分页查询公告
func (s *AnnouncementService) GetAnnouncements(ctx context.Context, actor model.Actor, query types.AnnouncementListQuery) (*model.PaginatedAnnouncements, error) {
	_, perPage, offset := normalizePage(query.Page, query.PerPage)
	filter := repository.AnnouncementFilter{
		Status: model.AnnouncementStatus(query.Status),
		Type:   model.AnnouncementType(query.Type),
		Search: query.Search,
		Sort:   query.Sort,
		Offset: offset,
		Limit:  perPage,
	}
	if !query.PublishedAfter.IsZero() {
		filter.PublishedAfter = &query.PublishedAfter
	}
	if !query.PublishedBefore.IsZero() {
		filter.PublishedBefore = &query.PublishedBefore
	}

	switch {
	case actor.IsPlatformAdmin():
		filter.CompanyID = query.CompanyID
	case actor.Role == model.RoleCompanyAdmin:
		if query.CompanyID != 0 && query.CompanyID != actor.OwnCompanyID() {
			return nil, constants.ErrBizForeignCompany
		}
		filter.CompanyID = actor.OwnCompanyID()
	default:
		ids, err := s.audience.followedCompanies(ctx, actor, query.CompanyID)
		if err != nil {
			return nil, err
		}
		filter.CompanyIDs = ids
		filter.Status = model.AnnouncementPublished
	}

	total, items, err := countAndList(ctx,
		func(ctx context.Context) (int64, error) { return s.announcementRepo.CountAnnouncements(ctx, filter) },
		func(ctx context.Context) ([]model.Announcement, error) { return s.announcementRepo.GetAnnouncements(ctx, filter) },
	)
	if err != nil {
		s.logger.Error("获取公告列表失败", "error", err)
		return nil, err
	}
	return &model.PaginatedAnnouncements{Total: total, Items: items}, nil
}

// GetPublishedAnnouncements 公开的已发布公告，按企业缓存5分钟
func (s *AnnouncementService) GetPublishedAnnouncements(ctx context.Context, companyID int64, page, limit int) (*model.PaginatedAnnouncements, error) {
	page, limit, offset := normalizePage(page, limit)

	cacheKey := fmt.Sprintf("announcements:public:%d:%d:%d", companyID, page, limit)
	cachedData, err := s.redisClient.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var result model.PaginatedAnnouncements
		if err := json.Unmarshal(cachedData, &result); err == nil {
			return &result, nil
		}
	}

	filter := repository.AnnouncementFilter{
		CompanyID: companyID,
		Status:    model.AnnouncementPublished,
		Offset:    offset,
		Limit:     limit,
	}
	total, items, err := countAndList(ctx,
		func(ctx context.Context) (int64, error) { return s.announcementRepo.CountAnnouncements(ctx, filter) },
		func(ctx context.Context) ([]model.Announcement, error) { return s.announcementRepo.GetAnnouncements(ctx, filter) },
	)
	if err != nil {
		s.logger.Error("获取公开公告失败", "company_id", companyID, "error", err)
		return nil, err
	}
	result := &model.PaginatedAnnouncements{Total: total, Items: items}

	if data, err := json.Marshal(result); err == nil {
		s.redisClient.Set(ctx, cacheKey, data, publicFeedTTL)
	}
	return result, nil
}

// invalidateCompany 删除企业的公开公告缓存
func (s *AnnouncementService) invalidateCompany(ctx context.Context, companyID int64) {
	pattern := fmt.Sprintf("announcements:public:%d:*", companyID)
	iter := s.redisClient.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := s.redisClient.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Error("删除缓存失败", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Error("扫描缓存失败", "pattern", pattern, "error", err)
	}
}

// loadOwned 加载公告并校验当前用户是其企业管理员
func (s *AnnouncementService) loadOwned(ctx context.Context, actor model.Actor, id int64) (*model.Announcement, error) {
	a, err := s.announcementRepo.GetAnnouncementByID(ctx, id)
	if err != nil {
		return nil, notFound(err, constants.ErrBizAnnouncementNotFound)
	}
	if !actor.IsCompanyAdminOf(a.CompanyID) {
		return nil, constants.ErrBizForbidden
	}
	return a, nil
}

// save 持久化变更并刷新缓存
func (s *AnnouncementService) save(ctx context.Context, a *model.Announcement, op string) error {
	if err := s.announcementRepo.Update(ctx, a); err != nil {
		s.logger.Error("保存公告失败", "id", a.ID, "op", op, "error", err)
		return err
	}
	s.invalidateCompany(ctx, a.CompanyID)
	s.logger.Info("公告已更新", "id", a.ID, "op", op, "status", a.Status)
	return nil
}

// transition 状态变更，记录指标
func (s *AnnouncementService) transition(ctx context.Context, a *model.Announcement, to model.AnnouncementStatus) error {
	a.Status = to
	if err := s.save(ctx, a, "transition:"+string(to)); err != nil {
		return err
	}
	metrics.AnnouncementTransitions.WithLabelValues(string(to)).Inc()
	return nil
}

// UpdateAnnouncement 编辑草稿或待发布公告，metadata合并后重新校验
func (s *AnnouncementService) UpdateAnnouncement(ctx context.Context, actor model.Actor, id int64, req types.UpdateAnnouncementRequest) (*model.Announcement, error) {
	a, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !a.Editable() {
		return nil, constants.ErrBizAnnouncementNotEditable
	}

	if req.Title != nil {
		a.Title = s.sanitizer.Text(*req.Title)
	}
	if req.Content != nil {
		content, err := s.cleanContent(*req.Content)
		if err != nil {
			return nil, err
		}
		a.Content = content
	}

	if len(req.Metadata) > 0 {
		prev := a.Metadata
		merged, err := model.MergeMetadata(prev, req.Metadata)
		if err != nil {
			return nil, err
		}
		// 以下字段只能通过专门的操作修改
		merged.ScheduledFor = prev.ScheduledFor
		merged.ActualStart = prev.ActualStart
		merged.ActualEnd = prev.ActualEnd

		if model.BoolValue(prev.IsResolved) && !model.BoolValue(merged.IsResolved) {
			return nil, constants.ErrBizIncidentUnresolve
		}
		if model.BoolValue(prev.ActionRequired) && !model.BoolValue(merged.ActionRequired) {
			return nil, constants.ErrBizAlertActionRevert
		}

		merged = merged.Normalize(a.Type)
		if err := merged.Validate(a.Type); err != nil {
			return nil, err
		}
		a.Metadata = merged
	}

	if err := s.save(ctx, a, "update"); err != nil {
		return nil, err
	}
	return a, nil
}

// PublishAnnouncement 立即发布草稿或待发布公告
func (s *AnnouncementService) PublishAnnouncement(ctx context.Context, actor model.Actor, id int64) (*model.Announcement, error) {
	a, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case model.AnnouncementPublished:
		return nil, constants.ErrBizAnnouncementPublished
	case model.AnnouncementArchived:
		return nil, constants.ErrBizAnnouncementTransition
	}

	now := s.now()
	a.PublishedAt = &now
	a.Metadata.ScheduledFor = nil
	if err := s.transition(ctx, a, model.AnnouncementPublished); err != nil {
		return nil, err
	}
	return a, nil
}

// ScheduleAnnouncement 设置或修改定时发布时间
func (s *AnnouncementService) ScheduleAnnouncement(ctx context.Context, actor model.Actor, id int64, at time.Time) (*model.Announcement, error) {
	a, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AnnouncementDraft && a.Status != model.AnnouncementScheduled {
		return nil, constants.ErrBizAnnouncementTransition
	}
	if !at.After(s.now()) {
		return nil, constants.ErrBizScheduleInPast
	}

	a.Metadata.ScheduledFor = &at
	if err := s.transition(ctx, a, model.AnnouncementScheduled); err != nil {
		return nil, err
	}
	return a, nil
}

// UnscheduleAnnouncement 取消定时发布，回到草稿
func (s *AnnouncementService) UnscheduleAnnouncement(ctx context.Context, actor model.Actor, id int64) (*model.Announcement, error) {
	a, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AnnouncementScheduled {
		return nil, constants.ErrBizAnnouncementNotScheduled
	}

	a.Metadata.ScheduledFor = nil
	if err := s.transition(ctx, a, model.AnnouncementDraft); err != nil {
		return nil, err
	}
	return a, nil
}

// ArchiveAnnouncement 归档已发布公告
func (s *AnnouncementService) ArchiveAnnouncement(ctx context.Context, actor model.Actor, id int64) (*model.Announcement, error) {
	a, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AnnouncementPublished {
		return nil, constants.ErrBizAnnouncementNotPublished
	}
	if err := s.transition(ctx, a, model.AnnouncementArchived); err != nil {
		return nil, err
	}
	return a, nil
}

// RestoreAnnouncement 将已归档公告恢复为草稿
func (s *AnnouncementService) RestoreAnnouncement(ctx context.Context, actor model.Actor, id int64) (*model.Announcement, error) {
	a, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AnnouncementArchived {
		return nil, constants.ErrBizAnnouncementNotArchived
	}

	a.PublishedAt = nil
	if err := s.transition(ctx, a, model.AnnouncementDraft); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAnnouncement 删除草稿或已归档公告
func (s *AnnouncementService) DeleteAnnouncement(ctx context.Context, actor model.Actor, id int64) error {
	a, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if !a.Deletable() {
		return constants.ErrBizAnnouncementNotDeletable
	}
	if err := s.announcementRepo.Delete(ctx, a.ID); err != nil {
		s.logger.Error("删除公告失败", "id", id, "error", err)
		return notFound(err, constants.ErrBizAnnouncementNotFound)
	}
	s.invalidateCompany(ctx, a.CompanyID)
	return nil
}

// MarkMaintenanceStart 记录维护实际开始时间
func (s *AnnouncementService) MarkMaintenanceStart(ctx context.Context, actor model.Actor, id int64) (*model.Announcement, error) {
	a, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Type != model.AnnouncementMaintenance {
		return nil, constants.ErrBizWrongAnnouncementType
	}
	if a.Metadata.ActualStart != nil {
		return nil, constants.ErrBizMaintenanceStarted
	}

	now := s.now()
	a.Metadata.ActualStart = &now
	if err := s.save(ctx, a, "maintenance_start"); err != nil {
		return nil, err
	}
	return a, nil
}

// MarkMaintenanceComplete 记录维护实际结束时间
func (s *AnnouncementService) MarkMaintenanceComplete(ctx context.Context, actor model.Actor, id int64) (*model.Announcement, error) {
	a, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Type != model.AnnouncementMaintenance {
		return nil, constants.ErrBizWrongAnnouncementType
	}
	if a.Metadata.ActualStart == nil {
		return nil, constants.ErrBizMaintenanceNotStarted
	}
	if a.Metadata.ActualEnd != nil {
		return nil, constants.ErrBizMaintenanceCompleted
	}

	now := s.now()
	if !now.After(*a.Metadata.ActualStart) {
		return nil, constants.NewValidationError("metadata.actual_end", "actual_end必须晚于actual_start")
	}
	a.Metadata.ActualEnd = &now
	if err := s.save(ctx, a, "maintenance_complete"); err != nil {
		return nil, err
	}
	return a, nil
}

// ResolveIncident 标记故障已解决
func (s *AnnouncementService) ResolveIncident(ctx context.Context, actor model.Actor, id int64, req types.ResolveIncidentRequest) (*model.Announcement, error) {
	a, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Type != model.AnnouncementIncident {
		return nil, constants.ErrBizWrongAnnouncementType
	}
	if model.BoolValue(a.Metadata.IsResolved) {
		return nil, constants.ErrBizIncidentResolved
	}

	resolvedAt := s.now()
	if req.ResolvedAt != nil {
		resolvedAt = *req.ResolvedAt
	}

	meta := a.Metadata
	meta.IsResolved = model.Bool(true)
	meta.ResolvedAt = &resolvedAt
	meta.ResolutionContent = s.sanitizer.Text(req.ResolutionContent)
	// resolved_at可以等于started_at，此时不补ended_at，ended_at仍须严格晚于started_at
	if meta.EndedAt == nil && (meta.StartedAt == nil || resolvedAt.After(*meta.StartedAt)) {
		meta.EndedAt = &resolvedAt
	}
	if err := meta.Validate(a.Type); err != nil {
		return nil, err
	}
	a.Metadata = meta

	if err := s.save(ctx, a, "resolve_incident"); err != nil {
		return nil, err
	}
	return a, nil
}

// PublishDue 发布计划时间已到的公告，返回发布数量
func (s *AnnouncementService) PublishDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.announcementRepo.ListDueScheduled(ctx, now, dueBatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for i := range due {
		a := &due[i]
		ok, err := s.announcementRepo.PublishIfScheduled(ctx, a.ID, now)
		if err != nil {
			s.logger.Error("定时发布公告失败", "id", a.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		published++
		metrics.AnnouncementTransitions.WithLabelValues(string(model.AnnouncementPublished)).Inc()
		s.invalidateCompany(ctx, a.CompanyID)
		s.logger.Info("定时公告已发布", "id", a.ID, "company_id", a.CompanyID)
	}
	return published, nil
}
