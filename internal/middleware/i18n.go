// internal/middleware/i18n.go
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/internlink/placement-service/internal/i18n"
)

// I18nMiddleware resolves the response language from Accept-Language,
// falling back to the configured default locale.
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang, ok := i18n.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
		if !ok {
			lang = i18n.DefaultLanguage()
		}

		// Set language in context
		c.Set("lang", lang)
		c.Next()
	}
}
