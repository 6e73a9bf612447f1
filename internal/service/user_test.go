package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/constants"
	"helpdesk/internal/model"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
	"helpdesk/pkg/token"
)

func newUserFixture(t *testing.T, companies ...model.Company) (*UserService, *fakeUsers) {
	t.Helper()
	rdb, _ := newTestRedis(t)
	users := newFakeUsers()
	tokens := token.NewManager(token.Config{Secret: "test-secret", Issuer: "helpdesk", TTL: time.Hour}, rdb)
	return NewUserService(users, newFakeCompanies(companies...), tokens, logger.NewNop()), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, types.RegisterRequest{Email: "Ann@Example.test", Name: " Ann ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.test", u.Email)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.NotEqual(t, "password123", u.Password)

	_, err = svc.Register(ctx, types.RegisterRequest{Email: "ann@example.test", Name: "Ann", Password: "password123"})
	assert.ErrorIs(t, err, constants.ErrBizEmailExists)

	_, err = svc.Login(ctx, types.LoginRequest{Email: "ann@example.test", Password: "wrong-password"})
	assert.ErrorIs(t, err, constants.ErrBizAuthFailed)

	_, err = svc.Login(ctx, types.LoginRequest{Email: "nobody@example.test", Password: "password123"})
	assert.ErrorIs(t, err, constants.ErrBizAuthFailed)

	res, err := svc.Login(ctx, types.LoginRequest{Email: "ANN@example.test", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, u.ID, res.User.ID)
}

func TestLoginDisabledUser(t *testing.T) {
	svc, users := newUserFixture(t)
	hashed, err := hashPassword("password123")
	require.NoError(t, err)
	users.put(model.User{ID: 9, Email: "off@example.test", Password: hashed, Role: model.RoleUser, Status: model.UserStatusDisabled})

	_, err = svc.Login(context.Background(), types.LoginRequest{Email: "off@example.test", Password: "password123"})
	assert.ErrorIs(t, err, constants.ErrBizDisabled)
}

func TestAuthenticateAndLogout(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, types.RegisterRequest{Email: "ann@example.test", Name: "Ann", Password: "password123"})
	require.NoError(t, err)
	res, err := svc.Login(ctx, types.LoginRequest{Email: "ann@example.test", Password: "password123"})
	require.NoError(t, err)

	actor, claims, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, actor.UserID)
	assert.Equal(t, model.RoleUser, actor.Role)

	require.NoError(t, svc.Logout(ctx, claims))
	_, _, err = svc.Authenticate(ctx, res.Token)
	biz, ok := constants.AsBizError(err)
	require.True(t, ok)
	assert.Equal(t, 401, biz.Code)

	_, _, err = svc.Authenticate(ctx, "garbage")
	biz, ok = constants.AsBizError(err)
	require.True(t, ok)
	assert.Equal(t, 401, biz.Code)
}

func TestAuthenticateUsesCurrentAccount(t *testing.T) {
	svc, users := newUserFixture(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, types.RegisterRequest{Email: "bob@example.test", Name: "Bob", Password: "password123"})
	require.NoError(t, err)
	res, err := svc.Login(ctx, types.LoginRequest{Email: "bob@example.test", Password: "password123"})
	require.NoError(t, err)

	promoted, _ := users.GetByID(ctx, u.ID)
	promoted.Role = model.RoleCompanyAdmin
	promoted.CompanyID = int64Ptr(9)
	users.put(*promoted)

	actor, _, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCompanyAdmin, actor.Role)
	assert.Equal(t, int64(9), actor.OwnCompanyID())

	promoted.Status = model.UserStatusDisabled
	users.put(*promoted)
	_, _, err = svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, constants.ErrBizDisabled)
}

func TestCreateAgent(t *testing.T) {
	svc, _ := newUserFixture(t,
		model.Company{ID: 3, Status: model.CompanyStatusActive},
		model.Company{ID: 4, Status: model.CompanyStatusActive},
		model.Company{ID: 5, Status: model.CompanyStatusPending},
	)
	ctx := context.Background()
	req := types.CreateAgentRequest{Email: "agent@acme.test", Name: "Agent", Password: "password123"}

	agent, err := svc.CreateAgent(ctx, companyActor(7, 3), req)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAgent, agent.Role)
	assert.Equal(t, int64(3), *agent.CompanyID)

	req.Email = "other@acme.test"
	req.CompanyID = 4
	_, err = svc.CreateAgent(ctx, companyActor(7, 3), req)
	assert.ErrorIs(t, err, constants.ErrBizForeignCompany)

	req.CompanyID = 0
	_, err = svc.CreateAgent(ctx, platformAdmin, req)
	var verr *constants.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "company_id")

	req.CompanyID = 5
	_, err = svc.CreateAgent(ctx, platformAdmin, req)
	assert.ErrorIs(t, err, constants.ErrBizCompanyNotActive)

	_, err = svc.CreateAgent(ctx, agentActor(8, 3), req)
	assert.ErrorIs(t, err, constants.ErrBizForbidden)

	agents, err := svc.ListAgents(ctx, agentActor(8, 3), 0)
	require.NoError(t, err)
	assert.Len(t, agents, 1)

	_, err = svc.ListAgents(ctx, userActor(20), 3)
	assert.ErrorIs(t, err, constants.ErrBizForbidden)
}
