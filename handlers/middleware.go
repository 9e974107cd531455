package handlers

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gautam3767/additive_registry_backend/models"
)

const (
	callerKey    = "caller"
	userIDHeader = "X-User-ID"
)

// Identify resolves the caller for every request. X-User-ID names the
// contributor; without it the caller is anonymous and keyed by client IP.
// A bearer token equal to adminToken grants admin rights; an empty
// adminToken disables admin access.
func Identify(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := models.Caller{UserID: strings.TrimSpace(c.GetHeader(userIDHeader))}
		if caller.UserID == "" {
			caller.UserID = "anon:" + c.ClientIP()
			caller.Anonymous = true
		}
		if adminToken != "" {
			token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
			if ok && subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(adminToken)) == 1 {
				caller.IsAdmin = true
				if caller.Anonymous {
					caller.UserID = "admin"
					caller.Anonymous = false
				}
			}
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func callerFrom(c *gin.Context) models.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(models.Caller); ok {
			return caller
		}
	}
	return models.Caller{UserID: "anon:" + c.ClientIP(), Anonymous: true}
}
