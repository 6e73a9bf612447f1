package model

import "time"

// 企业状态
const (
	CompanyStatusPending   = "PENDING"
	CompanyStatusActive    = "ACTIVE"
	CompanyStatusRejected  = "REJECTED"
	CompanyStatusSuspended = "SUSPENDED"
)

// Company 企业，入驻申请即为PENDING状态的企业
type Company struct {
	ID              int64      `db:"id" json:"id"`
	CompanyCode     string     `db:"company_code" json:"company_code"`
	RequestCode     string     `db:"request_code" json:"request_code"`
	Name            string     `db:"name" json:"name"`
	LegalName       *string    `db:"legal_name" json:"legal_name"`
	Description     string     `db:"description" json:"description"`
	SupportEmail    string     `db:"support_email" json:"support_email"`
	Website         *string    `db:"website" json:"website"`
	Industry        string     `db:"industry" json:"industry"`
	ContactCity     *string    `db:"contact_city" json:"contact_city"`
	ContactCountry  *string    `db:"contact_country" json:"contact_country"`
	TaxID           *string    `db:"tax_id" json:"tax_id,omitempty"`
	RequestMessage  string     `db:"request_message" json:"request_message,omitempty"`
	EstimatedUsers  *int       `db:"estimated_users" json:"estimated_users,omitempty"`
	Status          string     `db:"status" json:"status"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	AdminUserID     *int64     `db:"admin_user_id" json:"admin_user_id,omitempty"`
	ReviewedAt      *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// PaginatedCompanies 分页企业结果
type PaginatedCompanies struct {
	Total int64     `json:"total"`
	Items []Company `json:"items"`
}
