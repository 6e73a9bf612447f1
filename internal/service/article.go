package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
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
	categoriesCacheKey = "articles:categories"
	categoriesCacheTTL = time.Hour
	excerptLength      = 150
	minArticleContent  = 50
)

// ArticleService 帮助中心服务
type ArticleService struct {
	articleRepo repository.ArticleRepository
	audience    audienceScope
	redisClient *redis.Client
	sanitizer   *sanitize.Sanitizer
	logger      *logger.Logger
	now         func() time.Time
}

// NewArticleService 创建帮助中心服务
func NewArticleService(
	articleRepo repository.ArticleRepository,
	followerRepo repository.FollowerRepository,
	redisClient *redis.Client,
	sanitizer *sanitize.Sanitizer,
	logger *logger.Logger,
) *ArticleService {
	return &ArticleService{
		articleRepo: articleRepo,
		audience:    audienceScope{followers: followerRepo},
		redisClient: redisClient,
		sanitizer:   sanitizer,
		logger:      logger,
		now:         time.Now,
	}
}

// ListCategories 获取文章分类，结果缓存一小时
func (s *ArticleService) ListCategories(ctx context.Context) ([]model.ArticleCategory, error) {
	if cached, err := s.redisClient.Get(ctx, categoriesCacheKey).Bytes(); err == nil {
		var categories []model.ArticleCategory
		if err := json.Unmarshal(cached, &categories); err == nil {
			return categories, nil
		}
	}

	categories, err := s.articleRepo.ListCategories(ctx)
	if err != nil {
		s.logger.Error("获取文章分类失败", "error", err)
		return nil, err
	}
	if data, err := json.Marshal(categories); err == nil {
		s.redisClient.Set(ctx, categoriesCacheKey, data, categoriesCacheTTL)
	}
	return categories, nil
}

// excerptOf 取正文纯文本的前150个字符作为摘要
func (s *ArticleService) excerptOf(content string) string {
	text := strings.Join(strings.Fields(s.sanitizer.Text(content)), " ")
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	return string([]rune(text)[:excerptLength])
}

func (s *ArticleService) cleanContent(content string) (string, error) {
	cleaned := s.sanitizer.HTML(content)
	if utf8.RuneCountInString(cleaned) < minArticleContent {
		return "", constants.NewValidationError("content", fmt.Sprintf("长度不能少于%d个字符", minArticleContent))
	}
	return cleaned, nil
}

func (s *ArticleService) ensureCategory(ctx context.Context, id int64) (*model.ArticleCategory, error) {
	category, err := s.articleRepo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, notFound(err, constants.ErrBizCategoryNotFound)
	}
	return category, nil
}

func (s *ArticleService) ensureTitleFree(ctx context.Context, companyID int64, title string, excludeID int64) error {
	exists, err := s.articleRepo.TitleExists(ctx, companyID, title, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return constants.ErrBizArticleTitleTaken
	}
	return nil
}

// Create 创建文章，总是草稿且浏览量为0
func (s *ArticleService) Create(ctx context.Context, actor model.Actor, req types.CreateArticleRequest) (*model.HelpCenterArticle, error) {
	if actor.Role != model.RoleCompanyAdmin || actor.OwnCompanyID() == 0 {
		return nil, constants.ErrBizForbidden
	}
	companyID := actor.OwnCompanyID()

	category, err := s.ensureCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	title := s.sanitizer.Text(req.Title)
	if err := s.ensureTitleFree(ctx, companyID, title, 0); err != nil {
		return nil, err
	}
	content, err := s.cleanContent(req.Content)
	if err != nil {
		return nil, err
	}

	excerpt := s.sanitizer.Text(req.Excerpt)
	if excerpt == "" {
		excerpt = s.excerptOf(content)
	}

	article := &model.HelpCenterArticle{
		CompanyID:    companyID,
		AuthorID:     actor.UserID,
		CategoryID:   category.ID,
		CategoryCode: category.Code,
		Title:        title,
		Excerpt:      excerpt,
		Content:      content,
		Status:       model.ArticleDraft,
	}
	if err := s.articleRepo.Create(ctx, article); err != nil {
		s.logger.Error("创建文章失败", "company_id", companyID, "error", err)
		return nil, err
	}
	s.logger.Info("文章已创建", "id", article.ID, "company_id", companyID)
	return article, nil
}

func (s *ArticleService) loadOwned(ctx context.Context, actor model.Actor, id int64) (*model.HelpCenterArticle, error) {
	article, err := s.articleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, constants.ErrBizArticleNotFound)
	}
	if !actor.IsCompanyAdminOf(article.CompanyID) {
		return nil, constants.ErrBizForbidden
	}
	return article, nil
}

// Update 部分更新文章，企业、作者、状态、发布时间和浏览量不可修改
func (s *ArticleService) Update(ctx context.Context, actor model.Actor, id int64, req types.UpdateArticleRequest) (*model.HelpCenterArticle, error) {
	article, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil {
		category, err := s.ensureCategory(ctx, *req.CategoryID)
		if err != nil {
			return nil, err
		}
		article.CategoryID = category.ID
		article.CategoryCode = category.Code
	}
	if req.Title != nil {
		title := s.sanitizer.Text(*req.Title)
		if title != article.Title {
			if err := s.ensureTitleFree(ctx, article.CompanyID, title, article.ID); err != nil {
				return nil, err
			}
		}
		article.Title = title
	}
	if req.Content != nil {
		content, err := s.cleanContent(*req.Content)
		if err != nil {
			return nil, err
		}
		article.Content = content
	}
	if req.Excerpt != nil {
		article.Excerpt = s.sanitizer.Text(*req.Excerpt)
		if article.Excerpt == "" {
			article.Excerpt = s.excerptOf(article.Content)
		}
	}

	if err := s.articleRepo.Update(ctx, article); err != nil {
		s.logger.Error("更新文章失败", "id", id, "error", err)
		return nil, err
	}
	return article, nil
}

// Publish 发布草稿文章
func (s *ArticleService) Publish(ctx context.Context, actor model.Actor, id int64) (*model.HelpCenterArticle, error) {
	article, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if article.IsPublished() {
		return nil, constants.ErrBizArticlePublished
	}

	now := s.now()
	article.Status = model.ArticlePublished
	article.PublishedAt = &now
	if err := s.articleRepo.Update(ctx, article); err != nil {
		s.logger.Error("发布文章失败", "id", id, "error", err)
		return nil, err
	}
	return article, nil
}

// Unpublish 撤回为草稿，浏览量保留
func (s *ArticleService) Unpublish(ctx context.Context, actor model.Actor, id int64) (*model.HelpCenterArticle, error) {
	article, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !article.IsPublished() {
		return nil, constants.ErrBizArticleNotPublished
	}

	article.Status = model.ArticleDraft
	article.PublishedAt = nil
	if err := s.articleRepo.Update(ctx, article); err != nil {
		s.logger.Error("撤回文章失败", "id", id, "error", err)
		return nil, err
	}
	return article, nil
}

// Delete 只能删除草稿
func (s *ArticleService) Delete(ctx context.Context, actor model.Actor, id int64) error {
	article, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if article.IsPublished() {
		return constants.ErrBizArticleDeletePublish
	}
	if err := s.articleRepo.Delete(ctx, id); err != nil {
		return notFound(err, constants.ErrBizArticleNotFound)
	}
	return nil
}

// View 按可见性读取文章，已发布文章的浏览量加一
func (s *ArticleService) View(ctx context.Context, actor model.Actor, id int64) (*model.HelpCenterArticle, error) {
	article, err := s.articleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, constants.ErrBizArticleNotFound)
	}

	switch {
	case actor.IsPlatformAdmin(), actor.IsCompanyAdminOf(article.CompanyID):
	case actor.Role == model.RoleCompanyAdmin:
		return nil, constants.ErrBizArticleNotFound
	default:
		if !article.IsPublished() {
			return nil, constants.ErrBizArticleNotFound
		}
		ok, err := s.audience.canRead(ctx, actor, article.CompanyID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, constants.ErrBizArticleNotFound
		}
	}

	if article.IsPublished() {
		counted, err := s.articleRepo.IncrementViews(ctx, article.ID)
		if err != nil {
			s.logger.Error("更新文章浏览量失败", "id", id, "error", err)
		} else if counted {
			article.ViewsCount++
			metrics.ArticleViews.Inc()
		}
	}
	return article, nil
}

// List 按角色可见性查询文章
func (s *ArticleService) List(ctx context.Context, actor model.Actor, query types.ArticleListQuery) (*model.PaginatedArticles, error) {
	_, perPage, offset := normalizePage(query.Page, query.PerPage)
	filter := repository.ArticleFilter{
		CategoryCode: query.Category,
		Status:       query.Status,
		Search:       query.Search,
		Sort:         query.Sort,
		Offset:       offset,
		Limit:        perPage,
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
		filter.Status = model.ArticlePublished
	}

	total, items, err := countAndList(ctx,
		func(ctx context.Context) (int64, error) { return s.articleRepo.Count(ctx, filter) },
		func(ctx context.Context) ([]model.HelpCenterArticle, error) { return s.articleRepo.List(ctx, filter) },
	)
	if err != nil {
		s.logger.Error("获取文章列表失败", "error", err)
		return nil, err
	}
	return &model.PaginatedArticles{Total: total, Items: items}, nil
}
