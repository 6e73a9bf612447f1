package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"helpdesk/internal/constants"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
	"helpdesk/pkg/token"
)

// LoginResult 登录结果
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// UserService 用户与认证服务
type UserService struct {
	userRepo    repository.UserRepository
	companyRepo repository.CompanyRepository
	tokens      *token.Manager
	logger      *logger.Logger
}

// NewUserService 创建用户服务实例
func NewUserService(
	userRepo repository.UserRepository,
	companyRepo repository.CompanyRepository,
	tokens *token.Manager,
	logger *logger.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		tokens:      tokens,
		logger:      logger,
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ensureEmailFree 邮箱已被注册时返回409
func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return constants.ErrBizEmailExists
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// Register 注册普通用户
func (s *UserService) Register(ctx context.Context, req types.RegisterRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:    email,
		Name:     strings.TrimSpace(req.Name),
		Password: hashed,
		Role:     model.RoleUser,
		Status:   model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("创建用户失败", "email", email, "error", err)
		return nil, err
	}

	s.logger.Info("用户注册成功", "user_id", user.ID)
	return user, nil
}

// Login 校验邮箱和密码并签发令牌
func (s *UserService) Login(ctx context.Context, req types.LoginRequest) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, constants.ErrBizAuthFailed
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, constants.ErrBizAuthFailed
	}
	if user.Status != model.UserStatusActive {
		return nil, constants.ErrBizDisabled
	}

	signed, expiresAt, err := s.tokens.Issue(user.ID, user.Role, user.CompanyID)
	if err != nil {
		s.logger.Error("签发令牌失败", "user_id", user.ID, "error", err)
		return nil, err
	}

	return &LoginResult{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate 解析Bearer令牌并加载用户，角色与企业以数据库为准
func (s *UserService) Authenticate(ctx context.Context, bearer string) (model.Actor, *token.Claims, error) {
	claims, err := s.tokens.Parse(ctx, bearer)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) || errors.Is(err, token.ErrRevokedToken) {
			return model.Actor{}, nil, constants.NewBizError(401, constants.ErrInvalidToken)
		}
		return model.Actor{}, nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Actor{}, nil, constants.NewBizError(401, constants.ErrInvalidToken)
		}
		return model.Actor{}, nil, err
	}
	if user.Status != model.UserStatusActive {
		return model.Actor{}, nil, constants.ErrBizDisabled
	}
	if user.Role != claims.Role {
		s.logger.Debug("令牌角色已过期，按当前角色处理", "user_id", user.ID, "token_role", claims.Role, "role", user.Role)
	}
	return model.Actor{UserID: user.ID, Role: user.Role, CompanyID: user.CompanyID}, claims, nil
}

// Logout 注销当前令牌
func (s *UserService) Logout(ctx context.Context, claims *token.Claims) error {
	return s.tokens.Revoke(ctx, claims)
}

// Me 获取当前用户
func (s *UserService) Me(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, constants.ErrBizUserNotFound)
	}
	return user, nil
}

// CreateAgent 为企业创建客服账号，企业管理员只能为本企业创建
func (s *UserService) CreateAgent(ctx context.Context, actor model.Actor, req types.CreateAgentRequest) (*model.User, error) {
	companyID := req.CompanyID
	switch {
	case actor.IsPlatformAdmin():
		if companyID == 0 {
			return nil, constants.NewValidationError("company_id", "该字段为必填项")
		}
	case actor.Role == model.RoleCompanyAdmin:
		if companyID != 0 && companyID != actor.OwnCompanyID() {
			return nil, constants.ErrBizForeignCompany
		}
		companyID = actor.OwnCompanyID()
	default:
		return nil, constants.ErrBizForbidden
	}

	company, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, notFound(err, constants.ErrBizCompanyNotFound)
	}
	if company.Status != model.CompanyStatusActive {
		return nil, constants.ErrBizCompanyNotActive
	}

	email := normalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	agent := &model.User{
		Email:     email,
		Name:      strings.TrimSpace(req.Name),
		Password:  hashed,
		Role:      model.RoleAgent,
		CompanyID: &company.ID,
		Status:    model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, agent); err != nil {
		s.logger.Error("创建客服失败", "company_id", companyID, "error", err)
		return nil, err
	}
	s.logger.Info("客服账号已创建", "company_id", companyID, "user_id", agent.ID, "by", actor.UserID)
	return agent, nil
}

// ListAgents 获取企业的客服列表
func (s *UserService) ListAgents(ctx context.Context, actor model.Actor, companyID int64) ([]model.User, error) {
	if !actor.IsPlatformAdmin() {
		if !actor.IsStaffOf(actor.OwnCompanyID()) {
			return nil, constants.ErrBizForbidden
		}
		if companyID != 0 && companyID != actor.OwnCompanyID() {
			return nil, constants.ErrBizForeignCompany
		}
		companyID = actor.OwnCompanyID()
	}
	return s.userRepo.ListByCompany(ctx, companyID, model.RoleAgent)
}
