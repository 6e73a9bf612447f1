package model

import "time"

// 角色
const (
	RolePlatformAdmin = "PLATFORM_ADMIN"
	RoleCompanyAdmin  = "COMPANY_ADMIN"
	RoleAgent         = "AGENT"
	RoleUser          = "USER"
)

// 用户状态
const (
	UserStatusDisabled = 0
	UserStatusActive   = 1
)

// User 用户模型
type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Password  string    `db:"password" json:"-"`
	Role      string    `db:"role" json:"role"`
	CompanyID *int64    `db:"company_id" json:"company_id"`
	Status    int       `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Actor 当前请求的操作者，由认证中间件写入上下文
type Actor struct {
	UserID    int64
	Role      string
	CompanyID *int64
}

// IsPlatformAdmin 是否平台管理员
func (a Actor) IsPlatformAdmin() bool { return a.Role == RolePlatformAdmin }

// IsCompanyAdminOf 是否指定企业的管理员
func (a Actor) IsCompanyAdminOf(companyID int64) bool {
	return a.Role == RoleCompanyAdmin && a.CompanyID != nil && *a.CompanyID == companyID
}

// IsStaffOf 是否指定企业的员工（企业管理员或客服）
func (a Actor) IsStaffOf(companyID int64) bool {
	if a.Role != RoleCompanyAdmin && a.Role != RoleAgent {
		return false
	}
	return a.CompanyID != nil && *a.CompanyID == companyID
}

// OwnCompanyID 员工所属企业，非员工返回0
func (a Actor) OwnCompanyID() int64 {
	if a.CompanyID == nil {
		return 0
	}
	return *a.CompanyID
}
