package repository

import (
	"context"
	"errors"
	"strings"

	"helpdesk/internal/model"

	"github.com/jmoiron/sqlx"
)

const companyColumns = `id, company_code, request_code, name, legal_name, description, support_email, website,
	industry, contact_city, contact_country, tax_id, request_message, estimated_users, status,
	rejection_reason, admin_user_id, reviewed_at, created_at, updated_at`

// CompanyFilter 企业列表条件
type CompanyFilter struct {
	Status string
	Search string
	Offset int
	Limit  int
}

// CompanyRepository 企业仓库接口
type CompanyRepository interface {
	Create(ctx context.Context, company *model.Company) error
	GetByID(ctx context.Context, id int64) (*model.Company, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Company, error)
	HasPendingRequest(ctx context.Context, supportEmail string) (bool, error)
	HasActiveWithName(ctx context.Context, name string) (bool, error)
	UpdateReview(ctx context.Context, company *model.Company) error
	List(ctx context.Context, filter CompanyFilter) ([]model.Company, error)
	Count(ctx context.Context, filter CompanyFilter) (int64, error)
	WithTx(tx *sqlx.Tx) CompanyRepository
}

type companyRepository struct {
	base
}

// NewCompanyRepository 创建企业仓库实例
func NewCompanyRepository(db *sqlx.DB) CompanyRepository {
	return &companyRepository{base{db: db}}
}

// WithTx 返回在事务上下文中操作的仓库
func (r *companyRepository) WithTx(tx *sqlx.Tx) CompanyRepository {
	return &companyRepository{base{db: r.db, tx: tx}}
}

// Create 创建企业（入驻申请）
func (r *companyRepository) Create(ctx context.Context, c *model.Company) error {
	query := `INSERT INTO companies (company_code, request_code, name, legal_name, description, support_email,
		website, industry, contact_city, contact_country, tax_id, request_message, estimated_users, status,
		created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	id, err := r.insert(ctx, query,
		c.CompanyCode, c.RequestCode, c.Name, c.LegalName, c.Description, c.SupportEmail,
		c.Website, c.Industry, c.ContactCity, c.ContactCountry, c.TaxID, c.RequestMessage, c.EstimatedUsers, c.Status)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// GetByID 根据ID获取企业
func (r *companyRepository) GetByID(ctx context.Context, id int64) (*model.Company, error) {
	c := &model.Company{}
	if err := r.get(ctx, c, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByIDForUpdate 在事务中加行锁读取企业
func (r *companyRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Company, error) {
	if r.tx == nil {
		return nil, errors.New("GetByIDForUpdate requires a transaction")
	}
	c := &model.Company{}
	if err := r.get(ctx, c, `SELECT `+companyColumns+` FROM companies WHERE id = ? FOR UPDATE`, id); err != nil {
		return nil, err
	}
	return c, nil
}

// HasPendingRequest 该邮箱是否已有待审核的申请
func (r *companyRepository) HasPendingRequest(ctx context.Context, supportEmail string) (bool, error) {
	var n int64
	query := `SELECT COUNT(*) FROM companies WHERE support_email = ? AND status = ?`
	if err := r.get(ctx, &n, query, supportEmail, model.CompanyStatusPending); err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasActiveWithName 是否存在同名（不区分大小写）的已启用企业
func (r *companyRepository) HasActiveWithName(ctx context.Context, name string) (bool, error) {
	var n int64
	query := `SELECT COUNT(*) FROM companies WHERE LOWER(name) = ? AND status = ?`
	if err := r.get(ctx, &n, query, strings.ToLower(strings.TrimSpace(name)), model.CompanyStatusActive); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateReview 保存审核结果
func (r *companyRepository) UpdateReview(ctx context.Context, c *model.Company) error {
	query := `UPDATE companies SET status = ?, rejection_reason = ?, admin_user_id = ?, reviewed_at = ?,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.exec(ctx, query, c.Status, c.RejectionReason, c.AdminUserID, c.ReviewedAt, c.ID)
	return err
}

func (f CompanyFilter) conditions() conditions {
	var cond conditions
	if f.Status != "" {
		cond.add("status = ?", f.Status)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		cond.add("(name LIKE ? OR industry LIKE ? OR description LIKE ?)", p, p, p)
	}
	return cond
}

// List 按条件分页获取企业
func (r *companyRepository) List(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	cond := filter.conditions()
	query := `SELECT ` + companyColumns + ` FROM companies` + cond.where() + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	companies := []model.Company{}
	if err := r.sel(ctx, &companies, query, append(cond.args, filter.Limit, filter.Offset)...); err != nil {
		return nil, err
	}
	return companies, nil
}

// Count 按条件统计企业数量
func (r *companyRepository) Count(ctx context.Context, filter CompanyFilter) (int64, error) {
	cond := filter.conditions()
	var n int64
	if err := r.get(ctx, &n, `SELECT COUNT(*) FROM companies`+cond.where(), cond.args...); err != nil {
		return 0, err
	}
	return n, nil
}
