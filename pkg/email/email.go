package email

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"sort"
	"strings"

	"helpdesk/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config 邮件配置
type Config struct {
	Host     string // SMTP服务器地址
	Port     int    // SMTP服务器端口
	Username string // 邮箱账号
	Password string // 邮箱密码
	From     string // 发件人
	FromName string // 发件人名称
}

// EmailType 邮件类型，同时也是模板名
type EmailType string

const (
	// TypeCompanyApproved 企业入驻审核通过
	TypeCompanyApproved EmailType = "company_approved"
	// TypeCompanyRejected 企业入驻审核驳回
	TypeCompanyRejected EmailType = "company_rejected"
	// TypeTicketAssigned 工单分配通知
	TypeTicketAssigned EmailType = "ticket_assigned"
	// TypePasswordReset 密码重置验证码
	TypePasswordReset EmailType = "password_reset"
)

const defaultProductName = "Helpdesk"

// EmailData 邮件数据
type EmailData struct {
	To                string
	Subject           string
	ProductName       string
	UserName          string
	CompanyName       string
	RequestCode       string
	TemporaryPassword string
	Reason            string
	TicketCode        string
	TicketTitle       string
	Code              string
	ExpireMinutes     int
}

// SendFunc 实际投递邮件的函数
type SendFunc func(to, subject, body string) error

// Service 邮件服务
type Service struct {
	config    Config
	logger    *logger.Logger
	templates *template.Template
	send      SendFunc
}

// NewService 创建邮件服务
func NewService(config Config, logger *logger.Logger) *Service {
	s := &Service{
		config:    config,
		logger:    logger,
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
	s.send = s.sendSMTP
	return s
}

// NewServiceWithSender 使用自定义投递函数创建邮件服务
func NewServiceWithSender(logger *logger.Logger, send SendFunc) *Service {
	s := NewService(Config{}, logger)
	s.send = send
	return s
}

// SendEmail 渲染模板并发送邮件
func (s *Service) SendEmail(emailType EmailType, data EmailData) error {
	if data.ProductName == "" {
		data.ProductName = defaultProductName
	}

	if data.Subject == "" {
		switch emailType {
		case TypeCompanyApproved:
			data.Subject = fmt.Sprintf("%s - 企业入驻申请已通过", data.ProductName)
		case TypeCompanyRejected:
			data.Subject = fmt.Sprintf("%s - 企业入驻申请未通过", data.ProductName)
		case TypeTicketAssigned:
			data.Subject = fmt.Sprintf("%s - 工单 %s 已分配给您", data.ProductName, data.TicketCode)
		case TypePasswordReset:
			data.Subject = fmt.Sprintf("%s - 密码重置验证码", data.ProductName)
		}
	}

	content, err := s.renderTemplate(emailType, data)
	if err != nil {
		return fmt.Errorf("渲染邮件模板失败: %w", err)
	}

	return s.send(data.To, data.Subject, content)
}

// SendCompanyApproved 发送入驻通过邮件，临时密码为空表示沿用已有账号
func (s *Service) SendCompanyApproved(to, companyName, requestCode, temporaryPassword string) error {
	return s.SendEmail(TypeCompanyApproved, EmailData{
		To:                to,
		CompanyName:       companyName,
		RequestCode:       requestCode,
		TemporaryPassword: temporaryPassword,
	})
}

// SendCompanyRejected 发送入驻驳回邮件
func (s *Service) SendCompanyRejected(to, companyName, requestCode, reason string) error {
	return s.SendEmail(TypeCompanyRejected, EmailData{
		To:          to,
		CompanyName: companyName,
		RequestCode: requestCode,
		Reason:      reason,
	})
}

// SendTicketAssigned 通知客服有新工单分配
func (s *Service) SendTicketAssigned(to, agentName, ticketCode, ticketTitle string) error {
	return s.SendEmail(TypeTicketAssigned, EmailData{
		To:          to,
		UserName:    agentName,
		TicketCode:  ticketCode,
		TicketTitle: ticketTitle,
	})
}

// SendPasswordResetCode 发送密码重置验证码
func (s *Service) SendPasswordResetCode(to, userName, code string, expireMinutes int) error {
	return s.SendEmail(TypePasswordReset, EmailData{
		To:            to,
		UserName:      userName,
		Code:          code,
		ExpireMinutes: expireMinutes,
	})
}

func (s *Service) renderTemplate(emailType EmailType, data EmailData) (string, error) {
	buf := new(bytes.Buffer)
	if err := s.templates.ExecuteTemplate(buf, string(emailType)+".html", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// buildMessage 组装邮件头和正文
func (s *Service) buildMessage(to, subject, body string) string {
	header := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From),
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}

	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %s\r\n", k, header[k])
	}
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return sb.String()
}

// sendSMTP 通过TLS连接SMTP服务器发送邮件
func (s *Service) sendSMTP(to, subject, body string) error {
	if s.config.Host == "" {
		s.logger.Warn("未配置SMTP服务器，跳过邮件发送", "to", to, "subject", subject)
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("创建TLS连接失败: %w", err)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("创建SMTP客户端失败: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP认证失败: %w", err)
	}
	if err = client.Mail(s.config.From); err != nil {
		return fmt.Errorf("设置发件人失败: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("设置收件人失败: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("准备发送数据失败: %w", err)
	}
	if _, err = w.Write([]byte(s.buildMessage(to, subject, body))); err != nil {
		return fmt.Errorf("写入邮件内容失败: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("关闭数据写入失败: %w", err)
	}

	s.logger.Info("邮件已发送", "to", to, "subject", subject)
	return client.Quit()
}
