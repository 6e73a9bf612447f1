package model

import "time"

// 工单状态
const (
	TicketOpen     = "OPEN"
	TicketPending  = "PENDING"
	TicketResolved = "RESOLVED"
	TicketClosed   = "CLOSED"
)

// 工单优先级
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// 回复作者类型
const (
	AuthorTypeNone  = "none"
	AuthorTypeUser  = "user"
	AuthorTypeAgent = "agent"
)

// TicketCategory 工单分类，归属企业
type TicketCategory struct {
	ID          int64     `db:"id" json:"id"`
	CompanyID   int64     `db:"company_id" json:"company_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Ticket 工单
type Ticket struct {
	ID                     int64      `db:"id" json:"id"`
	TicketCode             string     `db:"ticket_code" json:"ticket_code"`
	CompanyID              int64      `db:"company_id" json:"company_id"`
	CategoryID             int64      `db:"category_id" json:"category_id"`
	CreatedByUserID        int64      `db:"created_by_user_id" json:"created_by_user_id"`
	OwnerAgentID           *int64     `db:"owner_agent_id" json:"owner_agent_id"`
	Title                  string     `db:"title" json:"title"`
	Description            string     `db:"description" json:"description"`
	Priority               string     `db:"priority" json:"priority"`
	Status                 string     `db:"status" json:"status"`
	LastResponseAuthorType string     `db:"last_response_author_type" json:"last_response_author_type"`
	ResolvedAt             *time.Time `db:"resolved_at" json:"resolved_at"`
	ClosedAt               *time.Time `db:"closed_at" json:"closed_at"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// TicketResponse 工单回复
type TicketResponse struct {
	ID         int64      `db:"id" json:"id"`
	TicketID   int64      `db:"ticket_id" json:"ticket_id"`
	AuthorID   int64      `db:"author_id" json:"author_id"`
	AuthorType string     `db:"author_type" json:"author_type"`
	Content    string     `db:"content" json:"content"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at" json:"updated_at"`
}

// PaginatedTickets 分页工单结果
type PaginatedTickets struct {
	Total int64    `json:"total"`
	Items []Ticket `json:"items"`
}
