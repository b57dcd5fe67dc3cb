package serverutils

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalsToken  = "auth_token"
	LocalsUserID = "user_id"
)

// ExtractToken finds the caller's lesson backend credential. It is read from
// the Authorization header (Bearer or JWT scheme), then the token query
// parameter, then the auth_token form field.
func ExtractToken(ctx *fiber.Ctx) string {
	if h := strings.TrimSpace(ctx.Get(fiber.HeaderAuthorization)); h != "" {
		for _, scheme := range []string{"Bearer ", "JWT "} {
			if len(h) > len(scheme) && strings.EqualFold(h[:len(scheme)], scheme) {
				return strings.TrimSpace(h[len(scheme):])
			}
		}
	}
	if t := ctx.Query("token"); t != "" {
		return t
	}
	return strings.TrimSpace(ctx.FormValue("auth_token"))
}

// UserIDFromToken reads the user id claim without verifying the signature.
// The token is only forwarded to the lesson backend, which verifies it.
func UserIDFromToken(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, key := range []string{"id", "user_id", "sub"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// JwtMiddleware rejects requests without a credential and stores the token
// and user id in the request locals.
func JwtMiddleware(ctx *fiber.Ctx) error {
	token := ExtractToken(ctx)
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
	}
	ctx.Locals(LocalsToken, token)
	ctx.Locals(LocalsUserID, UserIDFromToken(token))
	return ctx.Next()
}
