package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS mirrors the teacher's internal/http/middleware/cors.go, widened
// to a configurable origin list since this service has no fixed set of
// known frontend ports.
func CORS(allowOrigins []string) gin.HandlerFunc {
	wildcard := len(allowOrigins) == 0
	if wildcard {
		allowOrigins = []string{"*"}
	}
	return cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		AllowCredentials: !wildcard,
	})
}
