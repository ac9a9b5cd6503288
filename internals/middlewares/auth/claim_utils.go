package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	authService "callmanager_backend/internals/features/users/auth/service"
	helper "callmanager_backend/internals/helpers"
)

/* ======== Extractors ======== */

// extractBearerToken reads the Authorization header, falling back to the
// access_token cookie used by the dashboards.
func extractBearerToken(c *fiber.Ctx) (string, error) {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if auth == "" {
		if cookieTok := c.Cookies("access_token"); cookieTok != "" {
			auth = "Bearer " + cookieTok
		}
	}
	if auth == "" {
		return "", fmt.Errorf("no token provided")
	}

	fields := strings.Fields(auth)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", fmt.Errorf("invalid token format")
	}
	tok := strings.Trim(strings.TrimSpace(fields[1]), "\"'")
	if tok == "" {
		return "", fmt.Errorf("empty token")
	}
	return tok, nil
}

/* ======== Store claims to Locals ======== */

func storeClaimsToLocals(c *fiber.Ctx, raw string, claims *authService.AccessClaims) {
	id, _ := claims.AccountID()
	helper.SetRawAccessToken(c, raw)
	c.Locals(helper.LocUserID, id)
	c.Locals(helper.LocRole, claims.Role)
	c.Locals(helper.LocTokenJTI, claims.ID)
	c.Locals(helper.LocTokenExp, claims.ExpiresAt.Time)
}
