package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"helpdesk/internal/constants"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
)

// Success 返回成功响应
func Success(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  msg,
		"data": data,
	})
}

// Fail 将服务层错误转换为统一响应，业务错误原样返回，其余记录日志后返回500
func Fail(c *gin.Context, log *logger.Logger, action string, err error) {
	var verr *constants.ValidationError
	if errors.As(err, &verr) {
		validationFailed(c, verr.Fields)
		return
	}
	if biz, ok := constants.AsBizError(err); ok {
		c.JSON(http.StatusOK, gin.H{"code": biz.Code, "msg": biz.Msg})
		return
	}

	log.Error(action+"失败", "error", err, "路径", c.FullPath())
	c.JSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
}

// BindFailed 请求参数绑定或校验失败
func BindFailed(c *gin.Context, err error) {
	if fields := types.ValidationMessages(err); fields != nil {
		validationFailed(c, fields)
		return
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		numErr    *strconv.NumError
	)
	switch {
	case errors.As(err, &typeErr):
		validationFailed(c, map[string]string{typeErr.Field: "类型不正确"})
	case errors.As(err, &syntaxErr), errors.As(err, &numErr):
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidParams})
	default:
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidParams + "：" + err.Error()})
	}
}

func validationFailed(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusOK, gin.H{
		"code": 422,
		"msg":  constants.ErrValidation,
		"data": gin.H{"errors": fields},
	})
}

// ParseID 解析路径中的数字ID，失败时已写入响应
func ParseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusOK, gin.H{"code": 400, "msg": constants.ErrInvalidParams})
		return 0, false
	}
	return id, true
}
