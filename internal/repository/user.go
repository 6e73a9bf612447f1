package repository

import (
	"context"

	"helpdesk/internal/model"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, name, password, role, company_id, status, created_at, updated_at`

// UserRepository 用户仓库接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateRole(ctx context.Context, id int64, role string, companyID *int64) error
	UpdatePassword(ctx context.Context, id int64, hashed string) error
	ListByCompany(ctx context.Context, companyID int64, role string) ([]model.User, error)
	WithTx(tx *sqlx.Tx) UserRepository
}

// userRepository 用户仓库实现
type userRepository struct {
	base
}

// NewUserRepository 创建用户仓库实例
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{base{db: db}}
}

// WithTx 返回在事务上下文中操作的仓库
func (r *userRepository) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepository{base{db: r.db, tx: tx}}
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (email, name, password, role, company_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	id, err := r.insert(ctx, query, user.Email, user.Name, user.Password, user.Role, user.CompanyID, user.Status)
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetByID 根据ID获取用户
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user := &model.User{}
	if err := r.get(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail 根据邮箱获取用户
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	if err := r.get(ctx, user, `SELECT `+userColumns+` FROM users WHERE email = ?`, email); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateRole 修改用户角色及所属企业
func (r *userRepository) UpdateRole(ctx context.Context, id int64, role string, companyID *int64) error {
	query := `UPDATE users SET role = ?, company_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.exec(ctx, query, role, companyID, id)
	return err
}

// UpdatePassword 更新密码哈希
func (r *userRepository) UpdatePassword(ctx context.Context, id int64, hashed string) error {
	return r.execAffected(ctx, `UPDATE users SET password = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, hashed, id)
}

// ListByCompany 获取企业下指定角色的用户，role为空表示所有员工
func (r *userRepository) ListByCompany(ctx context.Context, companyID int64, role string) ([]model.User, error) {
	var users []model.User
	var cond conditions
	cond.add("company_id = ?", companyID)
	if role != "" {
		cond.add("role = ?", role)
	}
	query := `SELECT ` + userColumns + ` FROM users` + cond.where() + ` ORDER BY id`
	if err := r.sel(ctx, &users, query, cond.args...); err != nil {
		return nil, err
	}
	return users, nil
}
