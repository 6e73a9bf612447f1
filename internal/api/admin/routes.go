package admin

import (
	"github.com/gin-gonic/gin"
)

// RegisterAdminRoutes 注册平台管理员路由，调用方负责挂载认证与角色中间件
func RegisterAdminRoutes(router *gin.RouterGroup, companyAdminHandler *CompanyAdminHandler) {
	requests := router.Group("/company-requests")
	{
		requests.GET("", companyAdminHandler.ListRequests)
		requests.POST("/:id/approve", companyAdminHandler.Approve)
		requests.POST("/:id/reject", companyAdminHandler.Reject)
	}
}
