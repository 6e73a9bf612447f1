package service

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"helpdesk/internal/constants"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// TaskRunner 异步执行副作用任务，*async.Worker实现了该接口
type TaskRunner interface {
	AddTask(name string, handler func(ctx context.Context) error) (string, error)
}

// TxRunner 在事务中执行，*repository.TxManager实现了该接口
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// CodeGenerator 生成可读编号，*sequence.Generator实现了该接口
type CodeGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Mailer 业务通知邮件，*email.Service实现了该接口
type Mailer interface {
	SendCompanyApproved(to, companyName, requestCode, temporaryPassword string) error
	SendCompanyRejected(to, companyName, requestCode, reason string) error
	SendTicketAssigned(to, agentName, ticketCode, ticketTitle string) error
	SendPasswordResetCode(to, userName, code string, expireMinutes int) error
}

// normalizePage 规范化分页参数，返回page、perPage和offset
func normalizePage(page, perPage int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage, (page - 1) * perPage
}

// notFound 将仓库的ErrNotFound替换为对应的业务错误
func notFound(err error, biz *constants.BizError) error {
	if errors.Is(err, repository.ErrNotFound) {
		return biz
	}
	return err
}

// countAndList 并行执行计数和分页查询
func countAndList[T any](ctx context.Context,
	count func(ctx context.Context) (int64, error),
	list func(ctx context.Context) ([]T, error),
) (int64, []T, error) {
	var (
		total int64
		items []T
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = list(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// audienceScope 普通用户和客服可见的企业范围
type audienceScope struct {
	followers repository.FollowerRepository
}

// followedCompanies 返回用户可读内容的企业ID，指定companyID时要求已关注
func (a audienceScope) followedCompanies(ctx context.Context, actor model.Actor, companyID int64) ([]int64, error) {
	ids, err := a.followers.FollowedCompanyIDs(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if companyID == 0 {
		return ids, nil
	}
	for _, id := range ids {
		if id == companyID {
			return []int64{companyID}, nil
		}
	}
	return nil, constants.ErrBizNotFollowed
}

// canRead 用户是否可以读取该企业的已发布内容
func (a audienceScope) canRead(ctx context.Context, actor model.Actor, companyID int64) (bool, error) {
	return a.followers.IsFollowing(ctx, actor.UserID, companyID)
}
