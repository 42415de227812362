package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/consolechat/pkg/auth"
)

const principalKey = "principal"

// requireAuth rejects requests without a valid bearer token and stores the
// verified principal in the request locals.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return respError(c, fiber.StatusUnauthorized, "not logged in")
	}

	p, err := s.auth.Verify(token)
	if err != nil {
		s.logger.Debug("rejected bearer token", "error", err)
		return respError(c, fiber.StatusUnauthorized, "invalid or expired token")
	}

	c.Locals(principalKey, p)
	return c.Next()
}

func principal(c *fiber.Ctx) *auth.Principal {
	p, _ := c.Locals(principalKey).(*auth.Principal)
	return p
}
