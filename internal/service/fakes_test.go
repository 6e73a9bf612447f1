package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/pkg/sequence"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

func int64Ptr(v int64) *int64 { return &v }

func companyActor(userID, companyID int64) model.Actor {
	return model.Actor{UserID: userID, Role: model.RoleCompanyAdmin, CompanyID: int64Ptr(companyID)}
}

func agentActor(userID, companyID int64) model.Actor {
	return model.Actor{UserID: userID, Role: model.RoleAgent, CompanyID: int64Ptr(companyID)}
}

func userActor(userID int64) model.Actor {
	return model.Actor{UserID: userID, Role: model.RoleUser}
}

var platformAdmin = model.Actor{UserID: 1, Role: model.RolePlatformAdmin}

// ---- 基础设施 ----

type fakeTx struct{ calls int }

func (f *fakeTx) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	f.calls++
	return fn(nil)
}

type syncTasks struct {
	mu    sync.Mutex
	names []string
}

func (s *syncTasks) AddTask(name string, handler func(ctx context.Context) error) (string, error) {
	s.mu.Lock()
	s.names = append(s.names, name)
	s.mu.Unlock()
	return name, handler(context.Background())
}

type sentMail struct {
	kind, to, subject, secret string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendCompanyApproved(to, companyName, requestCode, temporaryPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "approved", to: to, subject: requestCode, secret: temporaryPassword})
	return nil
}

func (m *fakeMailer) SendCompanyRejected(to, companyName, requestCode, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "rejected", to: to, subject: requestCode, secret: reason})
	return nil
}

func (m *fakeMailer) SendTicketAssigned(to, agentName, ticketCode, ticketTitle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "assigned", to: to, subject: ticketCode, secret: ticketTitle})
	return nil
}

func (m *fakeMailer) SendPasswordResetCode(to, userName, code string, expireMinutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "password_reset", to: to, subject: userName, secret: code})
	return nil
}

type fakeCodes struct {
	mu sync.Mutex
	n  map[string]int
}

func (f *fakeCodes) Next(ctx context.Context, prefix string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == nil {
		f.n = map[string]int{}
	}
	f.n[prefix]++
	return sequence.Format(prefix, 2025, int64(f.n[prefix])), nil
}

// ---- 用户 ----

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{nextID: 100, byID: map[int64]*model.User{}}
}

func (f *fakeUsers) put(u model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := u
	f.byID[u.ID] = &cp
	return &cp
}

func (f *fakeUsers) Create(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) UpdateRole(ctx context.Context, id int64, role string, companyID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	u.CompanyID = companyID
	return nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id int64, hashed string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hashed
	return nil
}

func (f *fakeUsers) ListByCompany(ctx context.Context, companyID int64, role string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.byID {
		if u.CompanyID != nil && *u.CompanyID == companyID && (role == "" || u.Role == role) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) WithTx(tx *sqlx.Tx) repository.UserRepository { return f }

// ---- 企业与关注 ----

type fakeCompanies struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.Company
}

func newFakeCompanies(companies ...model.Company) *fakeCompanies {
	f := &fakeCompanies{nextID: 10, byID: map[int64]*model.Company{}}
	for i := range companies {
		c := companies[i]
		f.byID[c.ID] = &c
	}
	return f
}

func (f *fakeCompanies) Create(ctx context.Context, c *model.Company) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCompanies) GetByID(ctx context.Context, id int64) (*model.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCompanies) GetByIDForUpdate(ctx context.Context, id int64) (*model.Company, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeCompanies) HasPendingRequest(ctx context.Context, supportEmail string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.SupportEmail == supportEmail && c.Status == model.CompanyStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCompanies) HasActiveWithName(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) && c.Status == model.CompanyStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCompanies) UpdateReview(ctx context.Context, c *model.Company) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCompanies) filter(filter repository.CompanyFilter) []model.Company {
	out := []model.Company{}
	for _, c := range f.byID {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, *c)
	}
	return out
}

func (f *fakeCompanies) List(ctx context.Context, filter repository.CompanyFilter) ([]model.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(filter), nil
}

func (f *fakeCompanies) Count(ctx context.Context, filter repository.CompanyFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.filter(filter))), nil
}

func (f *fakeCompanies) WithTx(tx *sqlx.Tx) repository.CompanyRepository { return f }

type fakeFollowers struct {
	mu      sync.Mutex
	follows map[int64]map[int64]bool
}

func newFakeFollowers() *fakeFollowers {
	return &fakeFollowers{follows: map[int64]map[int64]bool{}}
}

func (f *fakeFollowers) Follow(ctx context.Context, userID, companyID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.follows[userID] == nil {
		f.follows[userID] = map[int64]bool{}
	}
	f.follows[userID][companyID] = true
	return nil
}

func (f *fakeFollowers) Unfollow(ctx context.Context, userID, companyID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.follows[userID], companyID)
	return nil
}

func (f *fakeFollowers) IsFollowing(ctx context.Context, userID, companyID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.follows[userID][companyID], nil
}

func (f *fakeFollowers) FollowedCompanyIDs(ctx context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []int64{}
	for id := range f.follows[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeFollowers) ListFollowed(ctx context.Context, userID int64) ([]model.Company, error) {
	return []model.Company{}, nil
}

// ---- 公告 ----

type fakeAnnouncements struct {
	mu         sync.Mutex
	nextID     int64
	byID       map[int64]*model.Announcement
	lastFilter repository.AnnouncementFilter
}

func newFakeAnnouncements() *fakeAnnouncements {
	return &fakeAnnouncements{byID: map[int64]*model.Announcement{}}
}

func (f *fakeAnnouncements) put(a model.Announcement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = &a
}

func (f *fakeAnnouncements) Create(ctx context.Context, a *model.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAnnouncements) GetAnnouncementByID(ctx context.Context, id int64) (*model.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAnnouncements) Update(ctx context.Context, a *model.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAnnouncements) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeAnnouncements) PublishIfScheduled(ctx context.Context, id int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[id]
	if !ok || cur.Status != model.AnnouncementScheduled || cur.Metadata.ScheduledFor == nil || cur.Metadata.ScheduledFor.After(now) {
		return false, nil
	}
	published := now
	cur.Status = model.AnnouncementPublished
	cur.PublishedAt = &published
	cur.Metadata.ScheduledFor = nil
	return true, nil
}

func (f *fakeAnnouncements) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Announcement{}
	for _, a := range f.byID {
		if a.Status == model.AnnouncementScheduled && a.Metadata.ScheduledFor != nil && !a.Metadata.ScheduledFor.After(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAnnouncements) match(filter repository.AnnouncementFilter) []model.Announcement {
	out := []model.Announcement{}
	for _, a := range f.byID {
		if filter.CompanyIDs != nil {
			found := false
			for _, id := range filter.CompanyIDs {
				found = found || id == a.CompanyID
			}
			if !found {
				continue
			}
		}
		if filter.CompanyID != 0 && a.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		out = append(out, *a)
	}
	return out
}

func (f *fakeAnnouncements) GetAnnouncements(ctx context.Context, filter repository.AnnouncementFilter) ([]model.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	return f.match(filter), nil
}

func (f *fakeAnnouncements) CountAnnouncements(ctx context.Context, filter repository.AnnouncementFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.match(filter))), nil
}

// ---- 文章 ----

type fakeArticles struct {
	mu         sync.Mutex
	nextID     int64
	categories map[int64]model.ArticleCategory
	byID       map[int64]*model.HelpCenterArticle
	listCalls  int
	lastFilter repository.ArticleFilter
}

func newFakeArticles() *fakeArticles {
	return &fakeArticles{
		categories: map[int64]model.ArticleCategory{
			1: {ID: 1, Code: "GETTING_STARTED", Name: "Getting started"},
			2: {ID: 2, Code: "BILLING_PAYMENTS", Name: "Billing"},
		},
		byID: map[int64]*model.HelpCenterArticle{},
	}
}

func (f *fakeArticles) ListCategories(ctx context.Context) ([]model.ArticleCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return []model.ArticleCategory{f.categories[1], f.categories[2]}, nil
}

func (f *fakeArticles) GetCategoryByID(ctx context.Context, id int64) (*model.ArticleCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f *fakeArticles) Create(ctx context.Context, a *model.HelpCenterArticle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeArticles) GetByID(ctx context.Context, id int64) (*model.HelpCenterArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeArticles) TitleExists(ctx context.Context, companyID int64, title string, excludeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.CompanyID == companyID && a.Title == title && a.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeArticles) Update(ctx context.Context, a *model.HelpCenterArticle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeArticles) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeArticles) IncrementViews(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.Status != model.ArticlePublished {
		return false, nil
	}
	a.ViewsCount++
	return true, nil
}

func (f *fakeArticles) match(filter repository.ArticleFilter) []model.HelpCenterArticle {
	out := []model.HelpCenterArticle{}
	for _, a := range f.byID {
		if filter.CompanyIDs != nil {
			found := false
			for _, id := range filter.CompanyIDs {
				found = found || id == a.CompanyID
			}
			if !found {
				continue
			}
		}
		if filter.CompanyID != 0 && a.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *a)
	}
	return out
}

func (f *fakeArticles) List(ctx context.Context, filter repository.ArticleFilter) ([]model.HelpCenterArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	return f.match(filter), nil
}

func (f *fakeArticles) Count(ctx context.Context, filter repository.ArticleFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.match(filter))), nil
}

// ---- 工单 ----

type fakeTickets struct {
	mu         sync.Mutex
	nextID     int64
	byCode     map[string]*model.Ticket
	lastFilter repository.TicketFilter
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{byCode: map[string]*model.Ticket{}}
}

func (f *fakeTickets) Create(ctx context.Context, t *model.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.byCode[t.TicketCode] = &cp
	return nil
}

func (f *fakeTickets) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byCode[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTickets) Update(ctx context.Context, t *model.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.byCode[t.TicketCode] = &cp
	return nil
}

func (f *fakeTickets) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for code, t := range f.byCode {
		if t.ID == id {
			delete(f.byCode, code)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeTickets) List(ctx context.Context, filter repository.TicketFilter) ([]model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	out := []model.Ticket{}
	for _, t := range f.byCode {
		if filter.CompanyID != 0 && t.CompanyID != filter.CompanyID {
			continue
		}
		if filter.CreatedByUserID != 0 && t.CreatedByUserID != filter.CreatedByUserID {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTickets) Count(ctx context.Context, filter repository.TicketFilter) (int64, error) {
	items, _ := f.List(ctx, filter)
	return int64(len(items)), nil
}

func (f *fakeTickets) WithTx(tx *sqlx.Tx) repository.TicketRepository { return f }

type fakeTicketCategories struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.TicketCategory
}

func newFakeTicketCategories(categories ...model.TicketCategory) *fakeTicketCategories {
	f := &fakeTicketCategories{nextID: 50, byID: map[int64]*model.TicketCategory{}}
	for i := range categories {
		c := categories[i]
		f.byID[c.ID] = &c
	}
	return f
}

func (f *fakeTicketCategories) Create(ctx context.Context, c *model.TicketCategory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeTicketCategories) GetByID(ctx context.Context, id int64) (*model.TicketCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeTicketCategories) NameExists(ctx context.Context, companyID int64, name string, excludeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.CompanyID == companyID && c.Name == name && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTicketCategories) Update(ctx context.Context, c *model.TicketCategory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeTicketCategories) ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]model.TicketCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.TicketCategory{}
	for _, c := range f.byID {
		if c.CompanyID == companyID && (!activeOnly || c.IsActive) {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeResponses struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.TicketResponse
}

func newFakeResponses() *fakeResponses {
	return &fakeResponses{byID: map[int64]*model.TicketResponse{}}
}

func (f *fakeResponses) Create(ctx context.Context, r *model.TicketResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeResponses) GetByID(ctx context.Context, id int64) (*model.TicketResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeResponses) ListByTicket(ctx context.Context, ticketID int64) ([]model.TicketResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.TicketResponse{}
	for id := int64(1); id <= f.nextID; id++ {
		if r, ok := f.byID[id]; ok && r.TicketID == ticketID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeResponses) Update(ctx context.Context, r *model.TicketResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[r.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeResponses) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeResponses) WithTx(tx *sqlx.Tx) repository.TicketResponseRepository { return f }
