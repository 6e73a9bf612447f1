package repository

import (
	"context"

	"helpdesk/internal/model"

	"github.com/jmoiron/sqlx"
)

const ticketCategoryColumns = `id, company_id, name, description, is_active, created_at, updated_at`

// TicketCategoryRepository 工单分类仓库接口
type TicketCategoryRepository interface {
	Create(ctx context.Context, category *model.TicketCategory) error
	GetByID(ctx context.Context, id int64) (*model.TicketCategory, error)
	NameExists(ctx context.Context, companyID int64, name string, excludeID int64) (bool, error)
	Update(ctx context.Context, category *model.TicketCategory) error
	ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]model.TicketCategory, error)
}

type ticketCategoryRepository struct {
	base
}

// NewTicketCategoryRepository 创建工单分类仓库
func NewTicketCategoryRepository(db *sqlx.DB) TicketCategoryRepository {
	return &ticketCategoryRepository{base{db: db}}
}

// Create 创建分类
func (r *ticketCategoryRepository) Create(ctx context.Context, c *model.TicketCategory) error {
	query := `INSERT INTO ticket_categories (company_id, name, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	id, err := r.insert(ctx, query, c.CompanyID, c.Name, c.Description, c.IsActive)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// GetByID 根据ID获取分类
func (r *ticketCategoryRepository) GetByID(ctx context.Context, id int64) (*model.TicketCategory, error) {
	c := &model.TicketCategory{}
	if err := r.get(ctx, c, `SELECT `+ticketCategoryColumns+` FROM ticket_categories WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return c, nil
}

// NameExists 企业内是否已有同名分类
func (r *ticketCategoryRepository) NameExists(ctx context.Context, companyID int64, name string, excludeID int64) (bool, error) {
	var n int64
	query := `SELECT COUNT(*) FROM ticket_categories WHERE company_id = ? AND name = ? AND id <> ?`
	if err := r.get(ctx, &n, query, companyID, name, excludeID); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update 更新分类
func (r *ticketCategoryRepository) Update(ctx context.Context, c *model.TicketCategory) error {
	query := `UPDATE ticket_categories SET name = ?, description = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.exec(ctx, query, c.Name, c.Description, c.IsActive, c.ID)
	return err
}

// ListByCompany 获取企业的工单分类
func (r *ticketCategoryRepository) ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]model.TicketCategory, error) {
	var cond conditions
	cond.add("company_id = ?", companyID)
	if activeOnly {
		cond.add("is_active = 1")
	}
	categories := []model.TicketCategory{}
	query := `SELECT ` + ticketCategoryColumns + ` FROM ticket_categories` + cond.where() + ` ORDER BY name`
	if err := r.sel(ctx, &categories, query, cond.args...); err != nil {
		return nil, err
	}
	return categories, nil
}
