package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"k8s.io/apimachinery/pkg/util/rand"

	"helpdesk/internal/constants"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
)

// 密码重置验证码的有效期与发送频率
const (
	resetCodeTTL      = 15 * time.Minute
	resetResendGap    = time.Minute
	resetWindow       = 3 * time.Hour
	resetWindowLimit  = 2
	resetMaxAttempts  = 3
	resetLockDuration = 10 * time.Second
)

// resetCode 存入Redis的验证码及剩余尝试次数
type resetCode struct {
	Code     string `redis:"code"`
	Attempts int    `redis:"attempts"`
}

// TokenRevoker 注销用户的全部令牌，*token.Manager实现了该接口
type TokenRevoker interface {
	RevokeUser(ctx context.Context, userID int64) error
}

// PasswordResetService 邮箱验证码重置密码
type PasswordResetService struct {
	userRepo    repository.UserRepository
	redisClient *redis.Client
	tokens      TokenRevoker
	worker      TaskRunner
	mailer      Mailer
	logger      *logger.Logger
}

// NewPasswordResetService 创建密码重置服务
func NewPasswordResetService(
	userRepo repository.UserRepository,
	redisClient *redis.Client,
	tokens TokenRevoker,
	worker TaskRunner,
	mailer Mailer,
	logger *logger.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		userRepo:    userRepo,
		redisClient: redisClient,
		tokens:      tokens,
		worker:      worker,
		mailer:      mailer,
		logger:      logger,
	}
}

func resetCodeKey(email string) string { return "password_reset:code:" + email }
func resetResendKey(id int64) string { return fmt.Sprintf("password_reset:resend:%d", id) }
func resetCountKey(id int64) string { return fmt.Sprintf("password_reset:count:%d", id) }
func resetLockKey(email string) string { return "password_reset:lock:" + email }

// RequestReset 发送重置验证码。邮箱不存在或账号停用时静默返回，不暴露注册情况
func (s *PasswordResetService) RequestReset(ctx context.Context, req types.ForgotPasswordRequest) error {
	email := normalizeEmail(req.Email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.Status != model.UserStatusActive {
		return nil
	}

	ok, err := s.redisClient.SetNX(ctx, resetResendKey(user.ID), 1, resetResendGap).Result()
	if err != nil {
		return err
	}
	if !ok {
		return constants.ErrBizTooFrequent
	}

	count, err := s.redisClient.Incr(ctx, resetCountKey(user.ID)).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		s.redisClient.Expire(ctx, resetCountKey(user.ID), resetWindow)
	}
	if count > resetWindowLimit {
		return constants.ErrBizResetTooMany
	}

	code := fmt.Sprintf("%06d", rand.Intn(1000000))
	key := resetCodeKey(email)
	_, err = s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "code", code, "attempts", resetMaxAttempts)
		pipe.Expire(ctx, key, resetCodeTTL)
		return nil
	})
	if err != nil {
		s.logger.Error("保存重置验证码失败", "user_id", user.ID, "error", err)
		return err
	}

	to, name := user.Email, user.Name
	if _, err := s.worker.AddTask("email:password_reset", func(ctx context.Context) error {
		return s.mailer.SendPasswordResetCode(to, name, code, int(resetCodeTTL/time.Minute))
	}); err != nil {
		s.logger.Error("投递异步任务失败", "task", "email:password_reset", "error", err)
		return err
	}
	s.logger.Info("已发送密码重置验证码", "user_id", user.ID)
	return nil
}

// ResetPassword 校验验证码并设置新密码，成功后注销该用户的全部令牌
func (s *PasswordResetService) ResetPassword(ctx context.Context, req types.ResetPasswordRequest) error {
	email := normalizeEmail(req.Email)

	// 同一邮箱的重置请求串行处理
	locked, err := s.redisClient.SetNX(ctx, resetLockKey(email), 1, resetLockDuration).Result()
	if err != nil {
		return err
	}
	if !locked {
		return constants.ErrBizTooFrequent
	}
	defer s.redisClient.Del(context.WithoutCancel(ctx), resetLockKey(email))

	var stored resetCode
	if err := s.redisClient.HGetAll(ctx, resetCodeKey(email)).Scan(&stored); err != nil {
		return err
	}
	if stored.Code == "" || stored.Attempts <= 0 {
		return constants.ErrBizResetCodeInvalid
	}
	if stored.Code != req.Code {
		s.consumeAttempt(ctx, email, stored.Attempts)
		return constants.ErrBizResetCodeInvalid
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.redisClient.Del(ctx, resetCodeKey(email))
		return notFound(err, constants.ErrBizResetCodeInvalid)
	}
	if user.Status != model.UserStatusActive {
		s.redisClient.Del(ctx, resetCodeKey(email))
		return constants.ErrBizDisabled
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) == nil {
		s.consumeAttempt(ctx, email, stored.Attempts)
		return constants.ErrBizResetPasswordSame
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}
	s.redisClient.Del(ctx, resetCodeKey(email))

	if err := s.tokens.RevokeUser(ctx, user.ID); err != nil {
		s.logger.Error("注销用户令牌失败", "user_id", user.ID, "error", err)
	}
	s.logger.Info("密码已重置", "user_id", user.ID)
	return nil
}

// consumeAttempt 扣减一次尝试，用完后验证码作废
func (s *PasswordResetService) consumeAttempt(ctx context.Context, email string, remaining int) {
	if remaining <= 1 {
		s.redisClient.Del(ctx, resetCodeKey(email))
		return
	}
	s.redisClient.HIncrBy(ctx, resetCodeKey(email), "attempts", -1)
}
