package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/planflowhq/planflow/internal/pkg/session"
	"github.com/planflowhq/planflow/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session identity into a UserContext
// for every request. Anonymous requests get a default context instead of
// an error so public pages can render.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Goth uses its own fiber session store on OAuth routes; skip the app
	// session there to prevent cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	email := session.GetSessionValue(c, usercontext.KeyUserEmail)
	username := session.GetSessionValue(c, usercontext.KeyUsername)
	tier := session.GetSessionValue(c, "user_tier")

	userCtx := usercontext.UserContext{
		UserID:     userID.(uint),
		Email:      email,
		Username:   username,
		Tier:       tier,
		IsLoggedIn: true,
	}
	c.Locals("USER_CONTEXT", userCtx)
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, userID.(uint))
	c.Locals(usercontext.KeyUserEmail, email)

	return c.Next()
}
