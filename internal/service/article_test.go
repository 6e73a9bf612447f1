package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/constants"
	"helpdesk/internal/model"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
	"helpdesk/pkg/sanitize"
)

func newArticleFixture(t *testing.T) (*ArticleService, *fakeArticles, *fakeFollowers) {
	t.Helper()
	rdb, _ := newTestRedis(t)
	repo := newFakeArticles()
	followers := newFakeFollowers()
	svc := NewArticleService(repo, followers, rdb, sanitize.New(), logger.NewNop())
	svc.now = fixedNow
	return svc, repo, followers
}

var longContent = "<p>" + strings.Repeat("How to reset your password step by step. ", 6) + "</p>"

func TestArticleCreateDefaults(t *testing.T) {
	svc, _, _ := newArticleFixture(t)

	a, err := svc.Create(context.Background(), companyActor(7, 3), types.CreateArticleRequest{
		CategoryID: 1, Title: "Reset password", Content: longContent,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ArticleDraft, a.Status)
	assert.Zero(t, a.ViewsCount)
	assert.Nil(t, a.PublishedAt)
	assert.Equal(t, "GETTING_STARTED", a.CategoryCode)
	assert.Equal(t, excerptLength, utf8.RuneCountInString(a.Excerpt))
	assert.True(t, strings.HasPrefix(a.Excerpt, "How to reset"))
}

func TestArticleCreateValidation(t *testing.T) {
	svc, _, _ := newArticleFixture(t)
	admin := companyActor(7, 3)
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, types.CreateArticleRequest{CategoryID: 99, Title: "Missing", Content: longContent})
	assert.ErrorIs(t, err, constants.ErrBizCategoryNotFound)

	_, err = svc.Create(ctx, admin, types.CreateArticleRequest{CategoryID: 1, Title: "Short", Content: "<b>too short</b>"})
	var verr *constants.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "content")

	_, err = svc.Create(ctx, admin, types.CreateArticleRequest{CategoryID: 1, Title: "Dup", Content: longContent})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, types.CreateArticleRequest{CategoryID: 1, Title: "Dup", Content: longContent})
	assert.ErrorIs(t, err, constants.ErrBizArticleTitleTaken)

	_, err = svc.Create(ctx, companyActor(8, 4), types.CreateArticleRequest{CategoryID: 1, Title: "Dup", Content: longContent})
	assert.NoError(t, err, "titles are unique per company")

	_, err = svc.Create(ctx, agentActor(9, 3), types.CreateArticleRequest{CategoryID: 1, Title: "Agent", Content: longContent})
	assert.ErrorIs(t, err, constants.ErrBizForbidden)
}

func TestArticlePublishCycle(t *testing.T) {
	svc, _, _ := newArticleFixture(t)
	admin := companyActor(7, 3)
	ctx := context.Background()

	a, err := svc.Create(ctx, admin, types.CreateArticleRequest{CategoryID: 1, Title: "Billing", Content: longContent})
	require.NoError(t, err)

	a, err = svc.Publish(ctx, admin, a.ID)
	require.NoError(t, err)
	assert.True(t, a.IsPublished())
	assert.Equal(t, testNow, *a.PublishedAt)

	_, err = svc.Publish(ctx, admin, a.ID)
	assert.ErrorIs(t, err, constants.ErrBizArticlePublished)

	assert.ErrorIs(t, svc.Delete(ctx, admin, a.ID), constants.ErrBizArticleDeletePublish)

	_, err = svc.View(ctx, admin, a.ID)
	require.NoError(t, err)

	a, err = svc.Unpublish(ctx, admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ArticleDraft, a.Status)
	assert.Nil(t, a.PublishedAt)
	assert.Equal(t, int64(1), a.ViewsCount, "views survive unpublish")

	require.NoError(t, svc.Delete(ctx, admin, a.ID))
	_, err = svc.View(ctx, admin, a.ID)
	assert.ErrorIs(t, err, constants.ErrBizArticleNotFound)
}

func TestArticleUpdateKeepsTitleUnique(t *testing.T) {
	svc, _, _ := newArticleFixture(t)
	admin := companyActor(7, 3)
	ctx := context.Background()

	first, err := svc.Create(ctx, admin, types.CreateArticleRequest{CategoryID: 1, Title: "First", Content: longContent})
	require.NoError(t, err)
	second, err := svc.Create(ctx, admin, types.CreateArticleRequest{CategoryID: 1, Title: "Second", Content: longContent})
	require.NoError(t, err)

	title := "First"
	_, err = svc.Update(ctx, admin, second.ID, types.UpdateArticleRequest{Title: &title})
	assert.ErrorIs(t, err, constants.ErrBizArticleTitleTaken)

	category := int64(2)
	updated, err := svc.Update(ctx, admin, first.ID, types.UpdateArticleRequest{Title: &title, CategoryID: &category})
	require.NoError(t, err)
	assert.Equal(t, "BILLING_PAYMENTS", updated.CategoryCode)

	_, err = svc.Update(ctx, companyActor(8, 4), first.ID, types.UpdateArticleRequest{Title: &title})
	assert.ErrorIs(t, err, constants.ErrBizForbidden)
}

func TestArticleViewVisibility(t *testing.T) {
	svc, repo, followers := newArticleFixture(t)
	ctx := context.Background()
	repo.byID[1] = &model.HelpCenterArticle{ID: 1, CompanyID: 3, Status: model.ArticlePublished, ViewsCount: 4}
	repo.byID[2] = &model.HelpCenterArticle{ID: 2, CompanyID: 3, Status: model.ArticleDraft}

	user := userActor(20)
	_, err := svc.View(ctx, user, 1)
	assert.ErrorIs(t, err, constants.ErrBizArticleNotFound)

	require.NoError(t, followers.Follow(ctx, 20, 3))
	a, err := svc.View(ctx, user, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.ViewsCount)

	_, err = svc.View(ctx, user, 2)
	assert.ErrorIs(t, err, constants.ErrBizArticleNotFound)

	draft, err := svc.View(ctx, companyActor(7, 3), 2)
	require.NoError(t, err)
	assert.Zero(t, draft.ViewsCount, "drafts are not counted")

	_, err = svc.View(ctx, companyActor(8, 4), 2)
	assert.ErrorIs(t, err, constants.ErrBizArticleNotFound)
}

func TestArticleListScopes(t *testing.T) {
	svc, repo, followers := newArticleFixture(t)
	ctx := context.Background()
	repo.byID[1] = &model.HelpCenterArticle{ID: 1, CompanyID: 3, Status: model.ArticlePublished}
	repo.byID[2] = &model.HelpCenterArticle{ID: 2, CompanyID: 3, Status: model.ArticleDraft}
	repo.byID[3] = &model.HelpCenterArticle{ID: 3, CompanyID: 4, Status: model.ArticlePublished}

	res, err := svc.List(ctx, companyActor(7, 3), types.ArticleListQuery{Sort: "-views"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	assert.Equal(t, "-views", repo.lastFilter.Sort)

	_, err = svc.List(ctx, companyActor(7, 3), types.ArticleListQuery{CompanyID: 4})
	assert.ErrorIs(t, err, constants.ErrBizForeignCompany)

	require.NoError(t, followers.Follow(ctx, 20, 3))
	res, err = svc.List(ctx, agentActor(20, 9), types.ArticleListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)

	res, err = svc.List(ctx, platformAdmin, types.ArticleListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
}

func TestArticleCategoriesCached(t *testing.T) {
	svc, repo, _ := newArticleFixture(t)

	for i := 0; i < 3; i++ {
		categories, err := svc.ListCategories(context.Background())
		require.NoError(t, err)
		assert.Len(t, categories, 2)
	}
	assert.Equal(t, 1, repo.listCalls)
}
