package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/models"
)

// RequireActiveUser rejects tokens whose user was deactivated after the token was issued
func RequireActiveUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.Next()
			return
		}

		var user models.User
		err := db.WithContext(c.Request.Context()).Select("id", "is_active").First(&user, userID).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				logger.L().Error("failed to load token user", zap.Uint("user_id", userID), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user account is disabled"})
			return
		}

		c.Next()
	}
}
