package repository

import (
	"context"
	"time"

	"helpdesk/internal/model"

	"github.com/jmoiron/sqlx"
)

const ticketColumns = `id, ticket_code, company_id, category_id, created_by_user_id, owner_agent_id, title,
	description, priority, status, last_response_author_type, resolved_at, closed_at, created_at, updated_at`

// TicketFilter 工单列表条件
type TicketFilter struct {
	CompanyID       int64
	CreatedByUserID int64
	Status          string
	Priority        string
	CategoryID      int64
	// OwnerUnassigned 为true时只查询未分配的工单，优先于OwnerAgentID
	OwnerUnassigned bool
	OwnerAgentID    int64
	Search          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Offset          int
	Limit           int
}

// TicketRepository 工单仓库接口
type TicketRepository interface {
	Create(ctx context.Context, ticket *model.Ticket) error
	GetByCode(ctx context.Context, code string) (*model.Ticket, error)
	Update(ctx context.Context, ticket *model.Ticket) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter TicketFilter) ([]model.Ticket, error)
	Count(ctx context.Context, filter TicketFilter) (int64, error)
	WithTx(tx *sqlx.Tx) TicketRepository
}

type ticketRepository struct {
	base
}

// NewTicketRepository 创建工单仓库
func NewTicketRepository(db *sqlx.DB) TicketRepository {
	return &ticketRepository{base{db: db}}
}

// WithTx 返回在事务上下文中操作的仓库
func (r *ticketRepository) WithTx(tx *sqlx.Tx) TicketRepository {
	return &ticketRepository{base{db: r.db, tx: tx}}
}

// Create 创建工单
func (r *ticketRepository) Create(ctx context.Context, t *model.Ticket) error {
	query := `INSERT INTO tickets (ticket_code, company_id, category_id, created_by_user_id, owner_agent_id, title,
		description, priority, status, last_response_author_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	id, err := r.insert(ctx, query, t.TicketCode, t.CompanyID, t.CategoryID, t.CreatedByUserID, t.OwnerAgentID,
		t.Title, t.Description, t.Priority, t.Status, t.LastResponseAuthorType)
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// GetByCode 根据工单号获取工单
func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	t := &model.Ticket{}
	if err := r.get(ctx, t, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_code = ?`, code); err != nil {
		return nil, err
	}
	return t, nil
}

// Update 保存工单可变字段
func (r *ticketRepository) Update(ctx context.Context, t *model.Ticket) error {
	query := `UPDATE tickets SET category_id = ?, owner_agent_id = ?, title = ?, description = ?, priority = ?,
		status = ?, last_response_author_type = ?, resolved_at = ?, closed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	_, err := r.exec(ctx, query, t.CategoryID, t.OwnerAgentID, t.Title, t.Description, t.Priority, t.Status,
		t.LastResponseAuthorType, t.ResolvedAt, t.ClosedAt, t.ID)
	return err
}

// Delete 删除工单及其回复
func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.exec(ctx, `DELETE FROM ticket_responses WHERE ticket_id = ?`, id); err != nil {
		return err
	}
	return r.execAffected(ctx, `DELETE FROM tickets WHERE id = ?`, id)
}

func (f TicketFilter) conditions() conditions {
	var cond conditions
	if f.CompanyID > 0 {
		cond.add("company_id = ?", f.CompanyID)
	}
	if f.CreatedByUserID > 0 {
		cond.add("created_by_user_id = ?", f.CreatedByUserID)
	}
	if f.Status != "" {
		cond.add("status = ?", f.Status)
	}
	if f.Priority != "" {
		cond.add("priority = ?", f.Priority)
	}
	if f.CategoryID > 0 {
		cond.add("category_id = ?", f.CategoryID)
	}
	if f.OwnerUnassigned {
		cond.add("owner_agent_id IS NULL")
	} else if f.OwnerAgentID > 0 {
		cond.add("owner_agent_id = ?", f.OwnerAgentID)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		cond.add("(ticket_code LIKE ? OR title LIKE ? OR description LIKE ?)", p, p, p)
	}
	if f.CreatedFrom != nil {
		cond.add("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		cond.add("created_at <= ?", *f.CreatedTo)
	}
	return cond
}

// List 按条件分页获取工单，最新的在前
func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]model.Ticket, error) {
	cond := filter.conditions()
	tickets := []model.Ticket{}
	query := `SELECT ` + ticketColumns + ` FROM tickets` + cond.where() + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	if err := r.sel(ctx, &tickets, query, append(cond.args, filter.Limit, filter.Offset)...); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Count 按条件统计工单数量
func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int64, error) {
	cond := filter.conditions()
	var n int64
	if err := r.get(ctx, &n, `SELECT COUNT(*) FROM tickets`+cond.where(), cond.args...); err != nil {
		return 0, err
	}
	return n, nil
}
