package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/para-cebu/para/internal/core/domain"
)

// HeaderUserID carries the authenticated user id, set by the auth proxy.
const HeaderUserID = "X-User-ID"

const userIDKey = "user_id"

// RequireUser rejects requests without a user id header.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid := strings.TrimSpace(c.Get(HeaderUserID))
		if uid == "" {
			return errUnauthorized(c, HeaderUserID+" header is required")
		}
		c.Locals(userIDKey, uid)
		return c.Next()
	}
}

func userID(c *fiber.Ctx) string {
	uid, _ := c.Locals(userIDKey).(string)
	return uid
}

// ListSavedRoutesHandler returns the caller's saved routes, newest first.
func ListSavedRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		saved, err := deps.SavedRoutes.List(c.UserContext(), userID(c))
		if err != nil {
			return errFromDomain(c, deps, err)
		}
		if saved == nil {
			saved = []domain.SavedRoute{}
		}
		return c.JSON(saved)
	}
}

type saveRouteRequest struct {
	RelationID string  `json:"relation_id"`
	InitialLat float64 `json:"initial_lat"`
	InitialLon float64 `json:"initial_lon"`
	FinalLat   float64 `json:"final_lat"`
	FinalLon   float64 `json:"final_lon"`
}

// SaveRouteHandler bookmarks a route with the trip it was found for.
func SaveRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req saveRouteRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		saved, err := deps.SavedRoutes.Save(c.UserContext(), userID(c), domain.SavedRoute{
			RelationID: req.RelationID,
			InitialLat: req.InitialLat,
			InitialLon: req.InitialLon,
			FinalLat:   req.FinalLat,
			FinalLon:   req.FinalLon,
		})
		if err != nil {
			return errFromDomain(c, deps, err)
		}
		return c.Status(fiber.StatusCreated).JSON(saved)
	}
}

// DeleteSavedRouteHandler removes a bookmark by relation id.
func DeleteSavedRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		relationID := c.Query("relation_id")
		if relationID == "" {
			return errBadRequest(c, "relation_id query parameter is required")
		}
		if err := deps.SavedRoutes.Delete(c.UserContext(), userID(c), relationID); err != nil {
			return errFromDomain(c, deps, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// CheckSavedRouteHandler reports whether the caller saved a relation.
func CheckSavedRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		relationID := c.Query("relation_id")
		if relationID == "" {
			return errBadRequest(c, "relation_id query parameter is required")
		}
		saved, err := deps.SavedRoutes.IsSaved(c.UserContext(), userID(c), relationID)
		if err != nil {
			return errFromDomain(c, deps, err)
		}
		return c.JSON(fiber.Map{"is_saved": saved})
	}
}
