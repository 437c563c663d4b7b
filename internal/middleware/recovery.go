package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// RecoveryMiddleware turns a handler panic into a 500 response instead of a
// dropped connection, logging the stack trace.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC RECOVERED: %v\nRequest: %s %s\nStack trace:\n%s",
					r, c.Request.Method, c.Request.URL.Path, debug.Stack())

				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}

// SafeGoRoutine runs fn in a goroutine that logs a panic instead of killing
// the process.
func SafeGoRoutine(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in goroutine '%s': %v\nStack trace:\n%s",
					name, r, debug.Stack())
			}
		}()

		fn()
	}()
}
