// server/auth/auth.go
package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ViniZap4/noteful-server/domain"
)

type localsKey struct{}

// Extractor pulls a raw token out of a request. It returns "" when the
// request carries none.
type Extractor func(c *fiber.Ctx) string

// FromHeader reads an "Authorization: Bearer <token>" header.
func FromHeader(c *fiber.Ctx) string {
	scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// FromQuery reads the token from a query parameter. Browsers cannot set
// headers on websocket handshakes, so the event stream uses this.
func FromQuery(param string) Extractor {
	return func(c *fiber.Ctx) string {
		return c.Query(param)
	}
}

// Middleware rejects the request with domain.ErrUnauthorized unless it
// carries a valid token, and otherwise stores the caller's identity for
// CurrentUser. Extractors are tried in order; with none given the bearer
// header is used.
func Middleware(issuer *Issuer, extractors ...Extractor) fiber.Handler {
	if len(extractors) == 0 {
		extractors = []Extractor{FromHeader}
	}

	return func(c *fiber.Ctx) error {
		var token string
		for _, extract := range extractors {
			if token = extract(c); token != "" {
				break
			}
		}
		if token == "" {
			return domain.ErrUnauthorized
		}

		user, err := issuer.Verify(token)
		if err != nil {
			return err
		}

		c.Locals(localsKey{}, user)
		return c.Next()
	}
}

// CurrentUser returns the identity resolved by Middleware.
func CurrentUser(c *fiber.Ctx) domain.Identity {
	user, _ := c.Locals(localsKey{}).(domain.Identity)
	return user
}
