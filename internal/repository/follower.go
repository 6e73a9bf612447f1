package repository

import (
	"context"

	"helpdesk/internal/model"

	"github.com/jmoiron/sqlx"
)

// FollowerRepository 企业关注关系
type FollowerRepository interface {
	Follow(ctx context.Context, userID, companyID int64) error
	Unfollow(ctx context.Context, userID, companyID int64) error
	IsFollowing(ctx context.Context, userID, companyID int64) (bool, error)
	FollowedCompanyIDs(ctx context.Context, userID int64) ([]int64, error)
	ListFollowed(ctx context.Context, userID int64) ([]model.Company, error)
}

type followerRepository struct {
	base
}

// NewFollowerRepository 创建关注关系仓库
func NewFollowerRepository(db *sqlx.DB) FollowerRepository {
	return &followerRepository{base{db: db}}
}

// Follow 关注企业，重复关注不报错
func (r *followerRepository) Follow(ctx context.Context, userID, companyID int64) error {
	_, err := r.exec(ctx, `INSERT IGNORE INTO company_followers (user_id, company_id) VALUES (?, ?)`, userID, companyID)
	return err
}

// Unfollow 取消关注
func (r *followerRepository) Unfollow(ctx context.Context, userID, companyID int64) error {
	_, err := r.exec(ctx, `DELETE FROM company_followers WHERE user_id = ? AND company_id = ?`, userID, companyID)
	return err
}

// IsFollowing 是否已关注
func (r *followerRepository) IsFollowing(ctx context.Context, userID, companyID int64) (bool, error) {
	var n int64
	query := `SELECT COUNT(*) FROM company_followers WHERE user_id = ? AND company_id = ?`
	if err := r.get(ctx, &n, query, userID, companyID); err != nil {
		return false, err
	}
	return n > 0, nil
}

// FollowedCompanyIDs 用户关注的企业ID
func (r *followerRepository) FollowedCompanyIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	query := `SELECT company_id FROM company_followers WHERE user_id = ? ORDER BY company_id`
	if err := r.sel(ctx, &ids, query, userID); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListFollowed 用户关注的已启用企业
func (r *followerRepository) ListFollowed(ctx context.Context, userID int64) ([]model.Company, error) {
	companies := []model.Company{}
	query := `SELECT c.id, c.company_code, c.request_code, c.name, c.legal_name, c.description, c.support_email,
		c.website, c.industry, c.contact_city, c.contact_country, c.tax_id, c.request_message, c.estimated_users,
		c.status, c.rejection_reason, c.admin_user_id, c.reviewed_at, c.created_at, c.updated_at
		FROM companies c JOIN company_followers f ON f.company_id = c.id
		WHERE f.user_id = ? AND c.status = ?
		ORDER BY f.created_at DESC`
	if err := r.sel(ctx, &companies, query, userID, model.CompanyStatusActive); err != nil {
		return nil, err
	}
	return companies, nil
}
