// Package seed 从YAML夹具写入开发与演示数据
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/service"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
	"helpdesk/pkg/sequence"
)

// Fixtures 夹具文件结构
type Fixtures struct {
	PlatformAdmin *UserFixture      `yaml:"platform_admin"`
	Companies     []CompanyFixture `yaml:"companies"`
}

// UserFixture 用户
type UserFixture struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// CompanyFixture 已启用的企业及其成员与内容
type CompanyFixture struct {
	Name          string                `yaml:"name"`
	Description   string                `yaml:"description"`
	SupportEmail  string                `yaml:"support_email"`
	Industry      string                `yaml:"industry"`
	Website       string                `yaml:"website"`
	Admin         UserFixture           `yaml:"admin"`
	Agents        []UserFixture         `yaml:"agents"`
	Announcements []AnnouncementFixture `yaml:"announcements"`
	Articles      []ArticleFixture      `yaml:"articles"`
}

// AnnouncementFixture 公告，action取值同创建接口，schedule时使用scheduled_in
type AnnouncementFixture struct {
	Title       string                 `yaml:"title"`
	Content     string                 `yaml:"content"`
	Type        string                 `yaml:"type"`
	Action      string                 `yaml:"action"`
	ScheduledIn time.Duration          `yaml:"scheduled_in"`
	Metadata    map[string]interface{} `yaml:"metadata"`
}

// ArticleFixture 帮助中心文章，category为分类代码
type ArticleFixture struct {
	Category string `yaml:"category"`
	Title    string `yaml:"title"`
	Excerpt  string `yaml:"excerpt"`
	Content  string `yaml:"content"`
	Publish  bool   `yaml:"publish"`
}

// Load 读取并解析夹具文件
func Load(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse 解析夹具内容并检查公告元数据
func Parse(raw []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("解析夹具失败: %w", err)
	}
	for _, c := range f.Companies {
		if c.Name == "" || c.SupportEmail == "" || c.Admin.Email == "" {
			return nil, fmt.Errorf("企业夹具缺少name/support_email/admin: %q", c.Name)
		}
		for _, a := range c.Announcements {
			t := model.AnnouncementType(a.Type)
			if !t.Valid() {
				return nil, fmt.Errorf("公告%q类型无效: %s", a.Title, a.Type)
			}
			meta, err := a.metadata()
			if err != nil {
				return nil, err
			}
			if err := meta.Normalize(t).Validate(t); err != nil {
				return nil, fmt.Errorf("公告%q元数据无效: %w", a.Title, err)
			}
		}
	}
	return &f, nil
}

// rawMetadata YAML映射转为JSON，时间字段沿用RFC3339字符串
func (a AnnouncementFixture) rawMetadata() (json.RawMessage, error) {
	if a.Metadata == nil {
		return json.RawMessage("{}"), nil
	}
	raw, err := json.Marshal(a.Metadata)
	if err != nil {
		return nil, fmt.Errorf("公告%q元数据无法序列化: %w", a.Title, err)
	}
	return raw, nil
}

func (a AnnouncementFixture) metadata() (model.AnnouncementMetadata, error) {
	raw, err := a.rawMetadata()
	if err != nil {
		return model.AnnouncementMetadata{}, err
	}
	return model.MergeMetadata(model.AnnouncementMetadata{}, raw)
}

// Result 写入统计
type Result struct {
	Users         int
	Companies     int
	Announcements int
	Articles      int
}

// Seeder 写入夹具，公告与文章走业务服务以复用校验与清洗
type Seeder struct {
	users         repository.UserRepository
	companies     repository.CompanyRepository
	categories    repository.ArticleRepository
	codes         service.CodeGenerator
	announcements *service.AnnouncementService
	articles      *service.ArticleService
	logger        *logger.Logger
	now           func() time.Time
}

// NewSeeder 创建写入器
func NewSeeder(
	users repository.UserRepository,
	companies repository.CompanyRepository,
	categories repository.ArticleRepository,
	codes service.CodeGenerator,
	announcements *service.AnnouncementService,
	articles *service.ArticleService,
	logger *logger.Logger,
) *Seeder {
	return &Seeder{
		users:         users,
		companies:     companies,
		categories:    categories,
		codes:         codes,
		announcements: announcements,
		articles:      articles,
		logger:        logger,
		now:           time.Now,
	}
}

// Run 按顺序写入，已存在的用户与企业会被跳过
func (s *Seeder) Run(ctx context.Context, f *Fixtures) (*Result, error) {
	var res Result

	if f.PlatformAdmin != nil {
		if _, created, err := s.ensureUser(ctx, *f.PlatformAdmin, model.RolePlatformAdmin, nil); err != nil {
			return nil, err
		} else if created {
			res.Users++
		}
	}

	categoryIDs, err := s.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}

	for _, cf := range f.Companies {
		taken, err := s.companies.HasActiveWithName(ctx, cf.Name)
		if err != nil {
			return nil, err
		}
		if taken {
			s.logger.Info("企业已存在，跳过", "name", cf.Name)
			continue
		}

		company, err := s.createCompany(ctx, cf)
		if err != nil {
			return nil, err
		}
		res.Companies++

		admin, created, err := s.ensureUser(ctx, cf.Admin, model.RoleCompanyAdmin, &company.ID)
		if err != nil {
			return nil, err
		}
		if created {
			res.Users++
		} else if err := s.users.UpdateRole(ctx, admin.ID, model.RoleCompanyAdmin, &company.ID); err != nil {
			return nil, err
		}
		company.AdminUserID = &admin.ID
		if err := s.companies.UpdateReview(ctx, company); err != nil {
			return nil, err
		}

		for _, af := range cf.Agents {
			if _, created, err := s.ensureUser(ctx, af, model.RoleAgent, &company.ID); err != nil {
				return nil, err
			} else if created {
				res.Users++
			}
		}

		actor := model.Actor{UserID: admin.ID, Role: model.RoleCompanyAdmin, CompanyID: &company.ID}
		for _, af := range cf.Announcements {
			if err := s.createAnnouncement(ctx, actor, af); err != nil {
				return nil, err
			}
			res.Announcements++
		}
		for _, art := range cf.Articles {
			if err := s.createArticle(ctx, actor, categoryIDs, art); err != nil {
				return nil, err
			}
			res.Articles++
		}
	}
	return &res, nil
}

func (s *Seeder) categoryIndex(ctx context.Context) (map[string]int64, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int64, len(categories))
	for _, c := range categories {
		index[c.Code] = c.ID
	}
	return index, nil
}

// ensureUser 邮箱已存在时返回已有用户，否则按角色创建
func (s *Seeder) ensureUser(ctx context.Context, uf UserFixture, role string, companyID *int64) (*model.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(uf.Email))
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(uf.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}
	user := &model.User{
		Email:     email,
		Name:      uf.Name,
		Password:  string(hashed),
		Role:      role,
		CompanyID: companyID,
		Status:    model.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("创建用户%s失败: %w", email, err)
	}
	s.logger.Info("已创建用户", "email", email, "role", role)
	return user, true, nil
}

func (s *Seeder) createCompany(ctx context.Context, cf CompanyFixture) (*model.Company, error) {
	requestCode, err := s.codes.Next(ctx, sequence.PrefixRequest)
	if err != nil {
		return nil, err
	}
	companyCode, err := s.codes.Next(ctx, sequence.PrefixCompany)
	if err != nil {
		return nil, err
	}

	now := s.now()
	company := &model.Company{
		CompanyCode:    companyCode,
		RequestCode:    requestCode,
		Name:           cf.Name,
		Description:    cf.Description,
		SupportEmail:   strings.ToLower(cf.SupportEmail),
		Industry:       cf.Industry,
		RequestMessage: "seeded",
		Status:         model.CompanyStatusActive,
		ReviewedAt:     &now,
	}
	if cf.Website != "" {
		company.Website = &cf.Website
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("创建企业%s失败: %w", cf.Name, err)
	}
	s.logger.Info("已创建企业", "name", cf.Name, "company_code", companyCode)
	return company, nil
}

func (s *Seeder) createAnnouncement(ctx context.Context, actor model.Actor, af AnnouncementFixture) error {
	raw, err := af.rawMetadata()
	if err != nil {
		return err
	}
	req := types.CreateAnnouncementRequest{
		Title:    af.Title,
		Content:  af.Content,
		Type:     af.Type,
		Metadata: raw,
		Action:   af.Action,
	}
	if af.Action == service.ActionSchedule {
		at := s.now().Add(max(af.ScheduledIn, time.Hour))
		req.ScheduledFor = &at
	}
	if _, err := s.announcements.CreateAnnouncement(ctx, actor, req); err != nil {
		return fmt.Errorf("创建公告%q失败: %w", af.Title, err)
	}
	return nil
}

func (s *Seeder) createArticle(ctx context.Context, actor model.Actor, categoryIDs map[string]int64, art ArticleFixture) error {
	categoryID, ok := categoryIDs[art.Category]
	if !ok {
		return fmt.Errorf("文章%q的分类不存在: %s", art.Title, art.Category)
	}
	article, err := s.articles.Create(ctx, actor, types.CreateArticleRequest{
		CategoryID: categoryID,
		Title:      art.Title,
		Excerpt:    art.Excerpt,
		Content:    art.Content,
	})
	if err != nil {
		return fmt.Errorf("创建文章%q失败: %w", art.Title, err)
	}
	if art.Publish {
		if _, err := s.articles.Publish(ctx, actor, article.ID); err != nil {
			return fmt.Errorf("发布文章%q失败: %w", art.Title, err)
		}
	}
	return nil
}
