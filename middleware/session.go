package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parkcw/mboard/config"
	"github.com/parkcw/mboard/session"
	"github.com/parkcw/mboard/utils"
)

const (
	// ContextIdentityKey stores the authenticated member identity in the
	// gin context, resolved once per request from the session store.
	ContextIdentityKey = "identity"
	// LoginTarget is where unauthenticated requests are pointed at.
	LoginTarget = "/member/login"
)

// SessionRequired resolves the session cookie against the store and aborts
// with a login-required failure when no authenticated identity exists.
func SessionRequired(store session.Store) gin.HandlerFunc {
	cookieName := config.Get().SessionCookie
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(cookieName)
		if err != nil {
			utils.FailBack(ctx, http.StatusUnauthorized, 40101, "login required", LoginTarget)
			ctx.Abort()
			return
		}

		identity, err := store.Identity(ctx.Request.Context(), token)
		if err != nil {
			// Unknown, expired, and terminated tokens all land here.
			utils.FailBack(ctx, http.StatusUnauthorized, 40102, "login required", LoginTarget)
			ctx.Abort()
			return
		}

		ctx.Set(ContextIdentityKey, identity)
		ctx.Next()
	}
}

// Identity returns the authenticated identity placed by SessionRequired.
func Identity(ctx *gin.Context) (string, bool) {
	value, exists := ctx.Get(ContextIdentityKey)
	if !exists {
		return "", false
	}
	identity, ok := value.(string)
	if !ok || identity == "" {
		return "", false
	}
	return identity, true
}
