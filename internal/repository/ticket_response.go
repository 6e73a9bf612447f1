package repository

import (
	"context"

	"helpdesk/internal/model"

	"github.com/jmoiron/sqlx"
)

// TicketResponseRepository 工单回复仓库接口
type TicketResponseRepository interface {
	Create(ctx context.Context, response *model.TicketResponse) error
	GetByID(ctx context.Context, id int64) (*model.TicketResponse, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]model.TicketResponse, error)
	Update(ctx context.Context, response *model.TicketResponse) error
	Delete(ctx context.Context, id int64) error
	WithTx(tx *sqlx.Tx) TicketResponseRepository
}

type ticketResponseRepository struct {
	base
}

// NewTicketResponseRepository 创建工单回复仓库
func NewTicketResponseRepository(db *sqlx.DB) TicketResponseRepository {
	return &ticketResponseRepository{base{db: db}}
}

// WithTx 返回在事务上下文中操作的仓库
func (r *ticketResponseRepository) WithTx(tx *sqlx.Tx) TicketResponseRepository {
	return &ticketResponseRepository{base{db: r.db, tx: tx}}
}

// Create 创建回复
func (r *ticketResponseRepository) Create(ctx context.Context, resp *model.TicketResponse) error {
	query := `INSERT INTO ticket_responses (ticket_id, author_id, author_type, content, created_at)
		VALUES (?, ?, ?, ?, ?)`
	id, err := r.insert(ctx, query, resp.TicketID, resp.AuthorID, resp.AuthorType, resp.Content, resp.CreatedAt)
	if err != nil {
		return err
	}
	resp.ID = id
	return nil
}

// GetByID 根据ID获取回复
func (r *ticketResponseRepository) GetByID(ctx context.Context, id int64) (*model.TicketResponse, error) {
	resp := &model.TicketResponse{}
	query := `SELECT id, ticket_id, author_id, author_type, content, created_at, updated_at FROM ticket_responses WHERE id = ?`
	if err := r.get(ctx, resp, query, id); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListByTicket 按时间正序获取工单回复
func (r *ticketResponseRepository) ListByTicket(ctx context.Context, ticketID int64) ([]model.TicketResponse, error) {
	responses := []model.TicketResponse{}
	query := `SELECT id, ticket_id, author_id, author_type, content, created_at, updated_at FROM ticket_responses
		WHERE ticket_id = ? ORDER BY created_at ASC, id ASC`
	if err := r.sel(ctx, &responses, query, ticketID); err != nil {
		return nil, err
	}
	return responses, nil
}

// Update 更新回复内容
func (r *ticketResponseRepository) Update(ctx context.Context, resp *model.TicketResponse) error {
	return r.execAffected(ctx, `UPDATE ticket_responses SET content = ?, updated_at = ? WHERE id = ?`,
		resp.Content, resp.UpdatedAt, resp.ID)
}

// Delete 删除回复
func (r *ticketResponseRepository) Delete(ctx context.Context, id int64) error {
	return r.execAffected(ctx, `DELETE FROM ticket_responses WHERE id = ?`, id)
}
