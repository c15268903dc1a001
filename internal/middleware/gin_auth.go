package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// bridge runs a net/http middleware inside a Gin chain. The chain continues
// only if the middleware called next; a bodiless redirect is not Written().
func bridge(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			c.Request = r
			c.Next()
		})

		mw(next).ServeHTTP(c.Writer, c.Request)

		if !called {
			c.Writer.WriteHeaderNow()
			c.Abort()
		}
	}
}

// GinRequireAuth adapts RequireAuth to Gin.
func GinRequireAuth(a *AuthMiddleware) gin.HandlerFunc {
	return bridge(a.RequireAuth)
}

// GinRequireGuest adapts RequireGuest to Gin.
func GinRequireGuest(a *AuthMiddleware) gin.HandlerFunc {
	return bridge(a.RequireGuest)
}
