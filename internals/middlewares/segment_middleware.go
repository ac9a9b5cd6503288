package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// OnSegment restricts handlers to requests under prefix as a whole path
// segment. Group middleware matches by plain string prefix, so without it
// "/api/a" would also run for "/api/auth/...".
func OnSegment(prefix string, handlers ...fiber.Handler) []fiber.Handler {
	prefix = strings.ToLower(strings.TrimRight(prefix, "/"))
	out := make([]fiber.Handler, len(handlers))
	for i, h := range handlers {
		h := h
		out[i] = func(c *fiber.Ctx) error {
			if !underSegment(strings.ToLower(c.Path()), prefix) {
				return c.Next()
			}
			return h(c)
		}
	}
	return out
}

func underSegment(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
