package response

import "github.com/gin-gonic/gin"

// Error writes the flat {"error": ...} failure shape used by every route.
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, gin.H{"error": message})
}
