package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/stake_go_server/internal/model"
	"github.com/qs3c/stake_go_server/internal/pkg/response"
	"github.com/qs3c/stake_go_server/internal/repository"
)

// AdminOnly 管理员权限中间件，必须在 Auth 之后使用
func AdminOnly(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		user, err := userRepo.GetByID(userID)
		if err != nil {
			response.ServerError(c, "权限检查失败")
			c.Abort()
			return
		}

		if user == nil || user.Role != model.RoleAdmin {
			response.PermissionError(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
