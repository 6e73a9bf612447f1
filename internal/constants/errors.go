package constants

// 通用错误消息
const (
	// 认证相关错误
	ErrUnauthorized           = "未授权，请先登录"
	ErrInvalidToken           = "无效的Token"
	ErrInsufficientPermission = "权限不足"
	ErrAccountDisabled        = "账号已被禁用"
	ErrCaptchaFailed          = "人机验证失败"

	// 用户相关错误
	ErrUserNotFound = "用户不存在"
	ErrAuthFailed   = "邮箱或密码错误"
	ErrEmailExists  = "该邮箱已被注册"
	ErrAgentInvalid = "指定的客服不属于该企业"

	// 密码重置相关错误
	ErrResetCodeInvalid  = "验证码错误或已过期"
	ErrResetPasswordSame = "新密码不能与当前密码相同"
	ErrResetTooMany      = "验证码发送次数过多，请稍后再试"

	// 参数相关错误
	ErrInvalidParams  = "参数错误"
	ErrValidation     = "参数校验失败"
	ErrInvalidRequest = "无效请求格式"

	// 企业相关错误
	ErrCompanyNotFound       = "企业不存在"
	ErrCompanyNotActive      = "企业未启用"
	ErrCompanyNameTaken      = "已存在同名企业"
	ErrCompanyPendingExists  = "该邮箱已有待审核的入驻申请"
	ErrCompanyNotPending     = "该申请已被处理"
	ErrRejectionReasonLength = "驳回原因至少10个字符"

	// 公告相关错误
	ErrAnnouncementNotFound      = "公告不存在"
	ErrAnnouncementNotEditable   = "只有草稿或待发布的公告可以编辑"
	ErrAnnouncementNotDeletable  = "已发布或待发布的公告不能删除"
	ErrAnnouncementPublished     = "公告已发布"
	ErrAnnouncementNotPublished  = "只有已发布的公告可以归档"
	ErrAnnouncementNotArchived   = "只有已归档的公告可以恢复"
	ErrAnnouncementNotScheduled  = "公告不是待发布状态"
	ErrAnnouncementTransition    = "当前状态不允许该操作"
	ErrScheduleInPast            = "计划发布时间必须晚于当前时间"
	ErrWrongAnnouncementType     = "公告类型不支持该操作"
	ErrMaintenanceStarted        = "维护已开始"
	ErrMaintenanceNotStarted     = "维护尚未开始"
	ErrMaintenanceCompleted      = "维护已结束"
	ErrIncidentResolved          = "故障已解决"
	ErrIncidentUnresolve         = "已解决的故障不能改回未解决"
	ErrAlertActionRequiredRevert = "需要处理的告警不能改为无需处理"

	// 帮助中心相关错误
	ErrArticleNotFound      = "文章不存在"
	ErrArticleTitleTaken    = "该企业已存在同名文章"
	ErrArticlePublished     = "文章已发布"
	ErrArticleNotPublished  = "文章未发布"
	ErrArticleDeletePublish = "已发布的文章不能删除"
	ErrCategoryNotFound     = "分类不存在"

	// 工单相关错误
	ErrTicketNotFound         = "工单不存在"
	ErrTicketCategoryInvalid  = "工单分类不可用"
	ErrTicketCategoryExists   = "工单分类已存在"
	ErrTicketClosed           = "工单已关闭"
	ErrTicketNotEditable      = "当前状态下不能编辑工单"
	ErrTicketAlreadyResolved  = "工单已解决或已关闭"
	ErrTicketNotReopenable    = "只有已解决或已关闭的工单可以重新打开"
	ErrTicketDeleteNotClosed  = "只有已关闭的工单可以删除"
	ErrResponseNotFound       = "回复不存在"
	ErrResponseNotAuthor      = "只能修改或删除自己的回复"
	ErrResponseEditExpired    = "回复已超过30分钟，不能再修改或删除"
	ErrCompanyNotFollowed     = "您未关注该企业"
	ErrForeignCompany         = "无权访问其他企业的数据"
	ErrAdminEmailHasRole      = "联系邮箱已属于管理员或客服账号，请更换联系邮箱"

	// 系统错误
	ErrInternalServer       = "服务器内部错误"
	ErrOperationTooFrequent = "请求过于频繁，请稍后重试"
)

// 成功消息
const (
	SuccessLogin    = "登录成功"
	SuccessLogout   = "退出成功"
	SuccessRegister = "注册成功"
	SuccessCreate   = "创建成功"
	SuccessUpdate   = "更新成功"
	SuccessDelete   = "删除成功"
	SuccessGet      = "获取成功"
	SuccessSubmit   = "提交成功，请等待审核"

	SuccessResetCodeSent = "如果该邮箱已注册，验证码将发送到邮箱"
	SuccessPasswordReset = "密码重置成功，请重新登录"
)
