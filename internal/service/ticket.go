package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"helpdesk/internal/constants"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
	"helpdesk/pkg/metrics"
	"helpdesk/pkg/sanitize"
	"helpdesk/pkg/sequence"
)

// ResponseEditWindow 回复创建后允许作者修改或删除的时长
const ResponseEditWindow = 30 * time.Minute

// TicketService 工单服务
type TicketService struct {
	ticketRepo   repository.TicketRepository
	responseRepo repository.TicketResponseRepository
	categoryRepo repository.TicketCategoryRepository
	companyRepo  repository.CompanyRepository
	userRepo     repository.UserRepository
	tx           TxRunner
	codes        CodeGenerator
	worker       TaskRunner
	mailer       Mailer
	sanitizer    *sanitize.Sanitizer
	logger       *logger.Logger
	now          func() time.Time
}

// NewTicketService 创建工单服务
func NewTicketService(
	ticketRepo repository.TicketRepository,
	responseRepo repository.TicketResponseRepository,
	categoryRepo repository.TicketCategoryRepository,
	companyRepo repository.CompanyRepository,
	userRepo repository.UserRepository,
	tx TxRunner,
	codes CodeGenerator,
	worker TaskRunner,
	mailer Mailer,
	sanitizer *sanitize.Sanitizer,
	logger *logger.Logger,
) *TicketService {
	return &TicketService{
		ticketRepo:   ticketRepo,
		responseRepo: responseRepo,
		categoryRepo: categoryRepo,
		companyRepo:  companyRepo,
		userRepo:     userRepo,
		tx:           tx,
		codes:        codes,
		worker:       worker,
		mailer:       mailer,
		sanitizer:    sanitizer,
		logger:       logger,
		now:          time.Now,
	}
}

// isStaff 平台管理员或该企业的管理员、客服
func isStaff(actor model.Actor, companyID int64) bool {
	return actor.IsPlatformAdmin() || actor.IsStaffOf(companyID)
}

// ---- 工单分类 ----

// CreateCategory 企业管理员创建工单分类
func (s *TicketService) CreateCategory(ctx context.Context, actor model.Actor, req types.TicketCategoryRequest) (*model.TicketCategory, error) {
	if actor.Role != model.RoleCompanyAdmin || actor.OwnCompanyID() == 0 {
		return nil, constants.ErrBizForbidden
	}
	companyID := actor.OwnCompanyID()
	name := strings.TrimSpace(req.Name)

	exists, err := s.categoryRepo.NameExists(ctx, companyID, name, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, constants.ErrBizTicketCategoryExists
	}

	category := &model.TicketCategory{
		CompanyID:   companyID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		s.logger.Error("创建工单分类失败", "company_id", companyID, "error", err)
		return nil, err
	}
	return category, nil
}

// UpdateCategory 更新或停用工单分类
func (s *TicketService) UpdateCategory(ctx context.Context, actor model.Actor, id int64, req types.TicketCategoryRequest) (*model.TicketCategory, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, constants.ErrBizTicketCategoryInvalid)
	}
	if !actor.IsCompanyAdminOf(category.CompanyID) {
		return nil, constants.ErrBizForbidden
	}

	name := strings.TrimSpace(req.Name)
	if name != category.Name {
		exists, err := s.categoryRepo.NameExists(ctx, category.CompanyID, name, category.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, constants.ErrBizTicketCategoryExists
		}
	}
	category.Name = name
	category.Description = strings.TrimSpace(req.Description)
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		s.logger.Error("更新工单分类失败", "id", id, "error", err)
		return nil, err
	}
	return category, nil
}

// ListCategories 企业员工看到全部分类，其他人只看到启用的分类
func (s *TicketService) ListCategories(ctx context.Context, actor model.Actor, companyID int64) ([]model.TicketCategory, error) {
	return s.categoryRepo.ListByCompany(ctx, companyID, !isStaff(actor, companyID))
}

// ---- 工单 ----

// Create 创建工单
func (s *TicketService) Create(ctx context.Context, actor model.Actor, req types.CreateTicketRequest) (*model.Ticket, error) {
	company, err := s.companyRepo.GetByID(ctx, req.CompanyID)
	if err != nil {
		return nil, notFound(err, constants.ErrBizCompanyNotFound)
	}
	if company.Status != model.CompanyStatusActive {
		return nil, constants.ErrBizCompanyNotActive
	}

	category, err := s.categoryRepo.GetByID(ctx, req.CategoryID)
	if err != nil {
		return nil, notFound(err, constants.ErrBizTicketCategoryInvalid)
	}
	if category.CompanyID != company.ID || !category.IsActive {
		return nil, constants.ErrBizTicketCategoryInvalid
	}

	code, err := s.codes.Next(ctx, sequence.PrefixTicket)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	ticket := &model.Ticket{
		TicketCode:             code,
		CompanyID:              company.ID,
		CategoryID:             category.ID,
		CreatedByUserID:        actor.UserID,
		Title:                  s.sanitizer.Text(req.Title),
		Description:            s.sanitizer.Text(req.Description),
		Priority:               priority,
		Status:                 model.TicketOpen,
		LastResponseAuthorType: model.AuthorTypeNone,
	}
	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		s.logger.Error("创建工单失败", "company_id", company.ID, "error", err)
		return nil, err
	}

	metrics.TicketEvents.WithLabelValues("created").Inc()
	s.logger.Info("工单已创建", "ticket_code", code, "company_id", company.ID, "user_id", actor.UserID)
	return ticket, nil
}

// ownerFilter 解析owner_agent_id过滤值：null、me或客服ID
func ownerFilter(actor model.Actor, value string, filter *repository.TicketFilter) {
	switch value {
	case "":
	case "null":
		filter.OwnerUnassigned = true
	case "me":
		filter.OwnerAgentID = actor.UserID
	default:
		if id, err := strconv.ParseInt(value, 10, 64); err == nil {
			filter.OwnerAgentID = id
		}
	}
}

// List 按可见性查询工单
func (s *TicketService) List(ctx context.Context, actor model.Actor, query types.TicketListQuery) (*model.PaginatedTickets, error) {
	_, perPage, offset := normalizePage(query.Page, query.PerPage)
	filter := repository.TicketFilter{
		Status:     query.Status,
		Priority:   query.Priority,
		CategoryID: query.CategoryID,
		Search:     query.Search,
		Offset:     offset,
		Limit:      perPage,
	}
	if !query.CreatedFrom.IsZero() {
		filter.CreatedFrom = &query.CreatedFrom
	}
	if !query.CreatedTo.IsZero() {
		filter.CreatedTo = &query.CreatedTo
	}
	ownerFilter(actor, query.OwnerAgentID, &filter)

	switch {
	case actor.IsPlatformAdmin():
	case actor.Role == model.RoleCompanyAdmin, actor.Role == model.RoleAgent:
		if actor.OwnCompanyID() == 0 {
			return nil, constants.ErrBizForbidden
		}
		filter.CompanyID = actor.OwnCompanyID()
	default:
		filter.CreatedByUserID = actor.UserID
	}

	total, items, err := countAndList(ctx,
		func(ctx context.Context) (int64, error) { return s.ticketRepo.Count(ctx, filter) },
		func(ctx context.Context) ([]model.Ticket, error) { return s.ticketRepo.List(ctx, filter) },
	)
	if err != nil {
		s.logger.Error("获取工单列表失败", "error", err)
		return nil, err
	}
	return &model.PaginatedTickets{Total: total, Items: items}, nil
}

// Get 获取工单，不可见时返回不存在
func (s *TicketService) Get(ctx context.Context, actor model.Actor, code string) (*model.Ticket, error) {
	ticket, err := s.ticketRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, constants.ErrBizTicketNotFound)
	}
	if !isStaff(actor, ticket.CompanyID) && ticket.CreatedByUserID != actor.UserID {
		return nil, constants.ErrBizTicketNotFound
	}
	return ticket, nil
}

// Update 创建者在OPEN状态可编辑，企业员工在关闭前可编辑
func (s *TicketService) Update(ctx context.Context, actor model.Actor, code string, req types.UpdateTicketRequest) (*model.Ticket, error) {
	ticket, err := s.Get(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	switch {
	case isStaff(actor, ticket.CompanyID):
		if ticket.Status == model.TicketClosed {
			return nil, constants.ErrBizTicketNotEditable
		}
	case ticket.Status != model.TicketOpen:
		return nil, constants.ErrBizTicketNotEditable
	}

	if req.CategoryID != nil && *req.CategoryID != ticket.CategoryID {
		category, err := s.categoryRepo.GetByID(ctx, *req.CategoryID)
		if err != nil {
			return nil, notFound(err, constants.ErrBizTicketCategoryInvalid)
		}
		if category.CompanyID != ticket.CompanyID || !category.IsActive {
			return nil, constants.ErrBizTicketCategoryInvalid
		}
		ticket.CategoryID = category.ID
	}
	if req.Title != nil {
		ticket.Title = s.sanitizer.Text(*req.Title)
	}
	if req.Description != nil {
		ticket.Description = s.sanitizer.Text(*req.Description)
	}
	if req.Priority != nil {
		ticket.Priority = *req.Priority
	}

	return s.save(ctx, ticket, "updated")
}

func (s *TicketService) save(ctx context.Context, ticket *model.Ticket, event string) (*model.Ticket, error) {
	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		s.logger.Error("保存工单失败", "ticket_code", ticket.TicketCode, "event", event, "error", err)
		return nil, err
	}
	metrics.TicketEvents.WithLabelValues(event).Inc()
	return ticket, nil
}

// Resolve 标记为已解决
func (s *TicketService) Resolve(ctx context.Context, actor model.Actor, code string) (*model.Ticket, error) {
	ticket, err := s.Get(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	if !isStaff(actor, ticket.CompanyID) {
		return nil, constants.ErrBizForbidden
	}
	if ticket.Status == model.TicketResolved || ticket.Status == model.TicketClosed {
		return nil, constants.ErrBizTicketResolved
	}

	now := s.now()
	ticket.Status = model.TicketResolved
	ticket.ResolvedAt = &now
	return s.save(ctx, ticket, "resolved")
}

// Close 关闭工单
func (s *TicketService) Close(ctx context.Context, actor model.Actor, code string) (*model.Ticket, error) {
	ticket, err := s.Get(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	if ticket.Status == model.TicketClosed {
		return nil, constants.ErrBizTicketClosed
	}

	now := s.now()
	ticket.Status = model.TicketClosed
	ticket.ClosedAt = &now
	return s.save(ctx, ticket, "closed")
}

// Reopen 重新打开已解决或已关闭的工单
func (s *TicketService) Reopen(ctx context.Context, actor model.Actor, code string) (*model.Ticket, error) {
	ticket, err := s.Get(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	if ticket.Status != model.TicketResolved && ticket.Status != model.TicketClosed {
		return nil, constants.ErrBizTicketNotReopenable
	}

	ticket.Status = model.TicketPending
	ticket.ResolvedAt = nil
	ticket.ClosedAt = nil
	return s.save(ctx, ticket, "reopened")
}

// Assign 将工单分配给本企业客服并异步发送通知
func (s *TicketService) Assign(ctx context.Context, actor model.Actor, code string, agentID int64) (*model.Ticket, error) {
	ticket, err := s.Get(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	if !isStaff(actor, ticket.CompanyID) {
		return nil, constants.ErrBizForbidden
	}
	if ticket.Status == model.TicketClosed {
		return nil, constants.ErrBizTicketClosed
	}

	agent, err := s.userRepo.GetByID(ctx, agentID)
	if err != nil {
		return nil, notFound(err, constants.ErrBizAgentInvalid)
	}
	if agent.Role != model.RoleAgent || agent.CompanyID == nil || *agent.CompanyID != ticket.CompanyID {
		return nil, constants.ErrBizAgentInvalid
	}

	ticket.OwnerAgentID = &agent.ID
	if _, err := s.save(ctx, ticket, "assigned"); err != nil {
		return nil, err
	}

	title := ticket.Title
	if _, err := s.worker.AddTask("email:ticket_assigned", func(ctx context.Context) error {
		return s.mailer.SendTicketAssigned(agent.Email, agent.Name, code, title)
	}); err != nil {
		s.logger.Error("投递异步任务失败", "task", "email:ticket_assigned", "error", err)
	}
	s.logger.Info("工单已分配", "ticket_code", code, "agent_id", agent.ID, "by", actor.UserID)
	return ticket, nil
}

// Delete 管理员删除已关闭的工单
func (s *TicketService) Delete(ctx context.Context, actor model.Actor, code string) error {
	ticket, err := s.Get(ctx, actor, code)
	if err != nil {
		return err
	}
	if !actor.IsPlatformAdmin() && !actor.IsCompanyAdminOf(ticket.CompanyID) {
		return constants.ErrBizForbidden
	}
	if ticket.Status != model.TicketClosed {
		return constants.ErrBizTicketDeleteNotClosed
	}

	err = s.tx.InTx(ctx, func(tx *sqlx.Tx) error {
		return s.ticketRepo.WithTx(tx).Delete(ctx, ticket.ID)
	})
	if err != nil {
		return notFound(err, constants.ErrBizTicketNotFound)
	}
	metrics.TicketEvents.WithLabelValues("deleted").Inc()
	s.logger.Info("工单已删除", "ticket_code", code, "by", actor.UserID)
	return nil
}

// ---- 回复 ----

// AddResponse 添加回复并同步更新工单状态
func (s *TicketService) AddResponse(ctx context.Context, actor model.Actor, code string, content string) (*model.TicketResponse, error) {
	ticket, err := s.Get(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	if ticket.Status == model.TicketClosed {
		return nil, constants.ErrBizTicketClosed
	}

	authorType := model.AuthorTypeUser
	if isStaff(actor, ticket.CompanyID) {
		authorType = model.AuthorTypeAgent
	}

	response := &model.TicketResponse{
		TicketID:   ticket.ID,
		AuthorID:   actor.UserID,
		AuthorType: authorType,
		Content:    s.sanitizer.HTML(content),
		CreatedAt:  s.now(),
	}

	switch authorType {
	case model.AuthorTypeAgent:
		// 只有客服角色会被自动设为负责人，管理员回复不占用负责人
		if ticket.OwnerAgentID == nil && actor.Role == model.RoleAgent {
			ticket.OwnerAgentID = &actor.UserID
		}
		if ticket.Status == model.TicketOpen {
			ticket.Status = model.TicketPending
		}
	case model.AuthorTypeUser:
		if ticket.Status == model.TicketPending {
			ticket.Status = model.TicketOpen
		}
	}
	ticket.LastResponseAuthorType = authorType

	err = s.tx.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.responseRepo.WithTx(tx).Create(ctx, response); err != nil {
			return err
		}
		return s.ticketRepo.WithTx(tx).Update(ctx, ticket)
	})
	if err != nil {
		s.logger.Error("保存工单回复失败", "ticket_code", code, "error", err)
		return nil, err
	}

	metrics.TicketEvents.WithLabelValues("response_" + authorType).Inc()
	return response, nil
}

// ListResponses 按时间正序获取回复
func (s *TicketService) ListResponses(ctx context.Context, actor model.Actor, code string) ([]model.TicketResponse, error) {
	ticket, err := s.Get(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	return s.responseRepo.ListByTicket(ctx, ticket.ID)
}

// editableResponse 取出当前用户可修改的回复：工单未关闭、本人所写且在编辑时限内
func (s *TicketService) editableResponse(ctx context.Context, actor model.Actor, code string, responseID int64) (*model.TicketResponse, error) {
	ticket, err := s.Get(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	if ticket.Status == model.TicketClosed {
		return nil, constants.ErrBizTicketClosed
	}

	response, err := s.responseRepo.GetByID(ctx, responseID)
	if err != nil {
		return nil, notFound(err, constants.ErrBizResponseNotFound)
	}
	if response.TicketID != ticket.ID {
		return nil, constants.ErrBizResponseNotFound
	}
	if response.AuthorID != actor.UserID {
		return nil, constants.ErrBizResponseNotAuthor
	}
	if s.now().Sub(response.CreatedAt) > ResponseEditWindow {
		return nil, constants.ErrBizResponseEditExpired
	}
	return response, nil
}

// UpdateResponse 作者在编辑时限内修改回复内容
func (s *TicketService) UpdateResponse(ctx context.Context, actor model.Actor, code string, responseID int64, content string) (*model.TicketResponse, error) {
	response, err := s.editableResponse(ctx, actor, code, responseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	response.Content = s.sanitizer.HTML(content)
	response.UpdatedAt = &now
	if err := s.responseRepo.Update(ctx, response); err != nil {
		return nil, notFound(err, constants.ErrBizResponseNotFound)
	}
	return response, nil
}

// DeleteResponse 作者在编辑时限内删除自己的回复，工单关闭后不可删除
func (s *TicketService) DeleteResponse(ctx context.Context, actor model.Actor, code string, responseID int64) error {
	response, err := s.editableResponse(ctx, actor, code, responseID)
	if err != nil {
		return err
	}
	return notFound(s.responseRepo.Delete(ctx, response.ID), constants.ErrBizResponseNotFound)
}
