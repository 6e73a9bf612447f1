package model

import "time"

// 文章状态
const (
	ArticleDraft     = "DRAFT"
	ArticlePublished = "PUBLISHED"
)

// ArticleCategory 帮助中心分类，固定目录由迁移写入
type ArticleCategory struct {
	ID          int64  `db:"id" json:"id"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

// HelpCenterArticle 帮助中心文章
type HelpCenterArticle struct {
	ID           int64      `db:"id" json:"id"`
	CompanyID    int64      `db:"company_id" json:"company_id"`
	AuthorID     int64      `db:"author_id" json:"author_id"`
	CategoryID   int64      `db:"category_id" json:"category_id"`
	CategoryCode string     `db:"category_code" json:"category_code"`
	Title        string     `db:"title" json:"title"`
	Excerpt      string     `db:"excerpt" json:"excerpt"`
	Content      string     `db:"content" json:"content"`
	Status       string     `db:"status" json:"status"`
	ViewsCount   int64      `db:"views_count" json:"views_count"`
	PublishedAt  *time.Time `db:"published_at" json:"published_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsPublished 是否已发布
func (a *HelpCenterArticle) IsPublished() bool {
	return a.Status == ArticlePublished
}

// PaginatedArticles 分页文章结果
type PaginatedArticles struct {
	Total int64               `json:"total"`
	Items []HelpCenterArticle `json:"items"`
}
