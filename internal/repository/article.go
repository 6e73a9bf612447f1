package repository

import (
	"context"

	"helpdesk/internal/model"

	"github.com/jmoiron/sqlx"
)

const articleSelect = `SELECT a.id, a.company_id, a.author_id, a.category_id, c.code AS category_code, a.title,
	a.excerpt, a.content, a.status, a.views_count, a.published_at, a.created_at, a.updated_at
	FROM help_center_articles a JOIN article_categories c ON c.id = a.category_id`

// ArticleFilter 文章列表条件
type ArticleFilter struct {
	CompanyIDs   []int64
	CompanyID    int64
	Status       string
	CategoryCode string
	Search       string
	Sort         string
	Offset       int
	Limit        int
}

var articleSorts = map[string]string{
	"-views":      "a.views_count DESC, a.id DESC",
	"views":       "a.views_count ASC, a.id ASC",
	"title":       "a.title ASC, a.id ASC",
	"-title":      "a.title DESC, a.id DESC",
	"created_at":  "a.created_at ASC, a.id ASC",
	"-created_at": "a.created_at DESC, a.id DESC",
}

// ArticleRepository 帮助中心文章与分类
type ArticleRepository interface {
	ListCategories(ctx context.Context) ([]model.ArticleCategory, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.ArticleCategory, error)
	Create(ctx context.Context, article *model.HelpCenterArticle) error
	GetByID(ctx context.Context, id int64) (*model.HelpCenterArticle, error)
	TitleExists(ctx context.Context, companyID int64, title string, excludeID int64) (bool, error)
	Update(ctx context.Context, article *model.HelpCenterArticle) error
	Delete(ctx context.Context, id int64) error
	IncrementViews(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, filter ArticleFilter) ([]model.HelpCenterArticle, error)
	Count(ctx context.Context, filter ArticleFilter) (int64, error)
}

type articleRepository struct {
	base
}

// NewArticleRepository 创建文章仓库
func NewArticleRepository(db *sqlx.DB) ArticleRepository {
	return &articleRepository{base{db: db}}
}

// ListCategories 获取全部分类
func (r *articleRepository) ListCategories(ctx context.Context) ([]model.ArticleCategory, error) {
	categories := []model.ArticleCategory{}
	if err := r.sel(ctx, &categories, `SELECT id, code, name, description FROM article_categories ORDER BY id`); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetCategoryByID 根据ID获取分类
func (r *articleRepository) GetCategoryByID(ctx context.Context, id int64) (*model.ArticleCategory, error) {
	c := &model.ArticleCategory{}
	if err := r.get(ctx, c, `SELECT id, code, name, description FROM article_categories WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return c, nil
}

// Create 创建文章
func (r *articleRepository) Create(ctx context.Context, a *model.HelpCenterArticle) error {
	query := `INSERT INTO help_center_articles (company_id, author_id, category_id, title, excerpt, content, status,
		views_count, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	id, err := r.insert(ctx, query, a.CompanyID, a.AuthorID, a.CategoryID, a.Title, a.Excerpt, a.Content,
		a.Status, a.ViewsCount, a.PublishedAt)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// GetByID 根据ID获取文章
func (r *articleRepository) GetByID(ctx context.Context, id int64) (*model.HelpCenterArticle, error) {
	a := &model.HelpCenterArticle{}
	if err := r.get(ctx, a, articleSelect+` WHERE a.id = ?`, id); err != nil {
		return nil, err
	}
	return a, nil
}

// TitleExists 企业内是否已有同名文章
func (r *articleRepository) TitleExists(ctx context.Context, companyID int64, title string, excludeID int64) (bool, error) {
	var n int64
	query := `SELECT COUNT(*) FROM help_center_articles WHERE company_id = ? AND title = ? AND id <> ?`
	if err := r.get(ctx, &n, query, companyID, title, excludeID); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update 保存文章内容与发布状态，浏览量不在此更新
func (r *articleRepository) Update(ctx context.Context, a *model.HelpCenterArticle) error {
	query := `UPDATE help_center_articles SET category_id = ?, title = ?, excerpt = ?, content = ?, status = ?,
		published_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.exec(ctx, query, a.CategoryID, a.Title, a.Excerpt, a.Content, a.Status, a.PublishedAt, a.ID)
	return err
}

// Delete 删除文章
func (r *articleRepository) Delete(ctx context.Context, id int64) error {
	return r.execAffected(ctx, `DELETE FROM help_center_articles WHERE id = ?`, id)
}

// IncrementViews 已发布文章浏览量原子加一，返回是否计数
func (r *articleRepository) IncrementViews(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE help_center_articles SET views_count = views_count + 1 WHERE id = ? AND status = ?`
	result, err := r.exec(ctx, query, id, model.ArticlePublished)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (f ArticleFilter) conditions() conditions {
	var cond conditions
	if f.CompanyIDs != nil {
		cond.in("a.company_id", f.CompanyIDs)
	}
	if f.CompanyID > 0 {
		cond.add("a.company_id = ?", f.CompanyID)
	}
	if f.Status != "" {
		cond.add("a.status = ?", f.Status)
	}
	if f.CategoryCode != "" {
		cond.add("c.code = ?", f.CategoryCode)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		cond.add("(a.title LIKE ? OR a.content LIKE ?)", p, p)
	}
	return cond
}

// List 按条件分页获取文章
func (r *articleRepository) List(ctx context.Context, filter ArticleFilter) ([]model.HelpCenterArticle, error) {
	cond := filter.conditions()
	order, ok := articleSorts[filter.Sort]
	if !ok {
		order = articleSorts["-created_at"]
	}
	query, args, err := cond.build(articleSelect, ` ORDER BY `+order+` LIMIT ? OFFSET ?`, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	articles := []model.HelpCenterArticle{}
	if err := r.sel(ctx, &articles, query, args...); err != nil {
		return nil, err
	}
	return articles, nil
}

// Count 按条件统计文章数量
func (r *articleRepository) Count(ctx context.Context, filter ArticleFilter) (int64, error) {
	cond := filter.conditions()
	query, args, err := cond.build(`SELECT COUNT(*) FROM help_center_articles a JOIN article_categories c ON c.id = a.category_id`, "")
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.get(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}
