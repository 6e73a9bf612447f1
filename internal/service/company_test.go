package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"helpdesk/internal/constants"
	"helpdesk/internal/model"
	"helpdesk/internal/types"
	"helpdesk/pkg/captcha"
	"helpdesk/pkg/logger"
)

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(context.Context, captcha.Params) error { return captcha.ErrVerifyFailed }

type companyFixture struct {
	svc       *CompanyService
	companies *fakeCompanies
	users     *fakeUsers
	followers *fakeFollowers
	tasks     *syncTasks
	mailer    *fakeMailer
	tx        *fakeTx
}

func newCompanyFixture(t *testing.T, companies ...model.Company) *companyFixture {
	t.Helper()
	f := &companyFixture{
		companies: newFakeCompanies(companies...),
		users:     newFakeUsers(),
		followers: newFakeFollowers(),
		tasks:     &syncTasks{},
		mailer:    &fakeMailer{},
		tx:        &fakeTx{},
	}
	f.svc = NewCompanyService(f.companies, f.users, f.followers, f.tx, &fakeCodes{},
		captcha.Noop{}, f.tasks, f.mailer, logger.NewNop())
	f.svc.now = fixedNow
	return f
}

func companyRequest() types.CompanyRequest {
	return types.CompanyRequest{
		Name:           "Acme Corp",
		Description:    "We build rockets and other things.",
		SupportEmail:   " Support@Acme.test ",
		Industry:       "Aerospace",
		RequestMessage: "Please onboard us, we have many customers.",
	}
}

func TestSubmitRequest(t *testing.T) {
	f := newCompanyFixture(t)

	c, err := f.svc.SubmitRequest(context.Background(), companyRequest())
	require.NoError(t, err)
	assert.Equal(t, model.CompanyStatusPending, c.Status)
	assert.Equal(t, "support@acme.test", c.SupportEmail)
	assert.Equal(t, "REQ-2025-00001", c.RequestCode)
	assert.Equal(t, "CMP-2025-00001", c.CompanyCode)

	_, err = f.svc.SubmitRequest(context.Background(), companyRequest())
	assert.ErrorIs(t, err, constants.ErrBizCompanyPendingExists)
}

func TestSubmitRequestActiveNameTaken(t *testing.T) {
	f := newCompanyFixture(t, model.Company{ID: 1, Name: "ACME CORP", Status: model.CompanyStatusActive, SupportEmail: "x@y.test"})

	_, err := f.svc.SubmitRequest(context.Background(), companyRequest())
	assert.ErrorIs(t, err, constants.ErrBizCompanyNameTaken)
}

func TestSubmitRequestCaptchaFailure(t *testing.T) {
	f := newCompanyFixture(t)
	f.svc.verifier = rejectingVerifier{}

	_, err := f.svc.SubmitRequest(context.Background(), companyRequest())
	assert.ErrorIs(t, err, constants.ErrBizCaptcha)
}

func TestApproveCreatesAdminAccount(t *testing.T) {
	f := newCompanyFixture(t, model.Company{
		ID: 5, Name: "Acme", SupportEmail: "support@acme.test", RequestCode: "REQ-2025-00005", Status: model.CompanyStatusPending,
	})

	res, err := f.svc.Approve(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, res.NewAccount)
	assert.Equal(t, model.CompanyStatusActive, res.Company.Status)
	assert.Equal(t, testNow, *res.Company.ReviewedAt)
	assert.Equal(t, 1, f.tx.calls)

	admin, err := f.users.GetByID(context.Background(), res.AdminUserID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCompanyAdmin, admin.Role)
	assert.Equal(t, int64(5), *admin.CompanyID)

	require.Len(t, f.mailer.sent, 1)
	mail := f.mailer.sent[0]
	assert.Equal(t, "approved", mail.kind)
	assert.Len(t, mail.secret, temporaryPasswordLength)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(mail.secret)))
	assert.Equal(t, []string{"email:company_approved"}, f.tasks.names)

	_, err = f.svc.Approve(context.Background(), 5)
	assert.ErrorIs(t, err, constants.ErrBizCompanyNotPending)
}

func TestApprovePromotesExistingUser(t *testing.T) {
	f := newCompanyFixture(t, model.Company{ID: 5, Name: "Acme", SupportEmail: "owner@acme.test", Status: model.CompanyStatusPending})
	f.users.put(model.User{ID: 40, Email: "owner@acme.test", Role: model.RoleUser, Status: model.UserStatusActive})

	res, err := f.svc.Approve(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, res.NewAccount)
	assert.Equal(t, int64(40), res.AdminUserID)

	u, _ := f.users.GetByID(context.Background(), 40)
	assert.Equal(t, model.RoleCompanyAdmin, u.Role)
	require.Len(t, f.mailer.sent, 1)
	assert.Empty(t, f.mailer.sent[0].secret)
}

func TestApproveKeepsExistingStaffRoles(t *testing.T) {
	cases := []model.User{
		{ID: 1, Email: "owner@acme.test", Role: model.RolePlatformAdmin, Status: model.UserStatusActive},
		{ID: 2, Email: "owner@acme.test", Role: model.RoleCompanyAdmin, CompanyID: int64Ptr(3), Status: model.UserStatusActive},
		{ID: 3, Email: "owner@acme.test", Role: model.RoleAgent, CompanyID: int64Ptr(3), Status: model.UserStatusActive},
	}
	for _, existing := range cases {
		t.Run(existing.Role, func(t *testing.T) {
			f := newCompanyFixture(t, model.Company{ID: 5, Name: "Acme", SupportEmail: "owner@acme.test", Status: model.CompanyStatusPending})
			f.users.put(existing)

			_, err := f.svc.Approve(context.Background(), 5)
			assert.ErrorIs(t, err, constants.ErrBizAdminEmailHasRole)

			u, _ := f.users.GetByID(context.Background(), existing.ID)
			assert.Equal(t, existing.Role, u.Role)
			assert.Equal(t, existing.CompanyID, u.CompanyID)

			c, _ := f.companies.GetByID(context.Background(), 5)
			assert.Equal(t, model.CompanyStatusPending, c.Status)
			assert.Empty(t, f.mailer.sent)
		})
	}
}

func TestApproveMissing(t *testing.T) {
	f := newCompanyFixture(t)
	_, err := f.svc.Approve(context.Background(), 404)
	assert.ErrorIs(t, err, constants.ErrBizCompanyNotFound)
}

func TestReject(t *testing.T) {
	f := newCompanyFixture(t, model.Company{ID: 5, Name: "Acme", SupportEmail: "support@acme.test", Status: model.CompanyStatusPending})

	_, err := f.svc.Reject(context.Background(), 5, "too short")
	assert.ErrorIs(t, err, constants.ErrBizRejectionReason)

	c, err := f.svc.Reject(context.Background(), 5, "Incomplete business documentation")
	require.NoError(t, err)
	assert.Equal(t, model.CompanyStatusRejected, c.Status)
	require.NotNil(t, c.RejectionReason)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "rejected", f.mailer.sent[0].kind)

	_, err = f.svc.Reject(context.Background(), 5, "Incomplete business documentation")
	assert.ErrorIs(t, err, constants.ErrBizCompanyNotPending)
}

func TestFollowRequiresActiveCompany(t *testing.T) {
	f := newCompanyFixture(t,
		model.Company{ID: 1, Status: model.CompanyStatusActive},
		model.Company{ID: 2, Status: model.CompanyStatusPending},
	)
	ctx := context.Background()

	require.NoError(t, f.svc.Follow(ctx, 20, 1))
	require.NoError(t, f.svc.Follow(ctx, 20, 1))
	following, _ := f.followers.IsFollowing(ctx, 20, 1)
	assert.True(t, following)

	assert.ErrorIs(t, f.svc.Follow(ctx, 20, 2), constants.ErrBizCompanyNotActive)
	assert.ErrorIs(t, f.svc.Follow(ctx, 20, 3), constants.ErrBizCompanyNotFound)

	require.NoError(t, f.svc.Unfollow(ctx, 20, 1))
	following, _ = f.followers.IsFollowing(ctx, 20, 1)
	assert.False(t, following)
}

func TestListCompaniesOnlyActive(t *testing.T) {
	f := newCompanyFixture(t,
		model.Company{ID: 1, Status: model.CompanyStatusActive},
		model.Company{ID: 2, Status: model.CompanyStatusPending},
	)

	res, err := f.svc.ListCompanies(context.Background(), types.CompanyListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)

	res, err = f.svc.ListRequests(context.Background(), types.CompanyListQuery{Status: model.CompanyStatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	assert.Equal(t, int64(2), res.Items[0].ID)
}

func TestGetCompanyHidesInactive(t *testing.T) {
	f := newCompanyFixture(t, model.Company{ID: 2, Status: model.CompanyStatusPending})

	_, err := f.svc.GetCompany(context.Background(), userActor(20), 2)
	assert.True(t, errors.Is(err, constants.ErrBizCompanyNotFound))

	_, err = f.svc.GetCompany(context.Background(), platformAdmin, 2)
	assert.NoError(t, err)
}
