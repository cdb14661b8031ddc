package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

// Error writes the structured failure envelope. Every error body carries a
// random trace id so a client report can be matched against server logs.
func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"traceId": uuid.NewString(),
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"traceId": uuid.NewString(),
			"details": details,
		},
	})
}
