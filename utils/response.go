package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response; details, when present, carry
// machine-readable context such as the minimum acceptable bid.
func JSONError(c *gin.Context, status int, err error, message string, details ...map[string]any) {
	body := gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	}
	if len(details) > 0 && len(details[0]) > 0 {
		body["details"] = details[0]
	}
	c.JSON(status, body)
}
