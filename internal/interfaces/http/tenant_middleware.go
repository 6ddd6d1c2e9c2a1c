package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/obracore/catalogo-api/internal/application/dto"
)

const localsUserID = "userId"

// TenantMiddleware exige el identificador de tenant en la cabecera X-User-ID
// y lo deja en locals para los handlers. La autenticación queda fuera de este
// servicio: el identificador llega ya verificado por la capa superior.
func TenantMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code: "UNAUTHORIZED", Message: "cabecera X-User-ID requerida",
			})
		}
		c.Locals(localsUserID, userID)
		return c.Next()
	}
}

// GetUserID devuelve el tenant cargado por TenantMiddleware.
func GetUserID(c *fiber.Ctx) string {
	if v, ok := c.Locals(localsUserID).(string); ok {
		return v
	}
	return ""
}
