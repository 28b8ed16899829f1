package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"dkn/internal/http/middleware"
	"dkn/internal/repository"
	"dkn/internal/service"
)

// Leaderboard ranks contributors by document count then downloads.
//
// @Summary  Contributor leaderboard
// @Tags     users
// @Produce  json
// @Param    limit query int false "Number of entries" default(10)
// @Success  200 {object} map[string]any
// @Security BearerAuth
// @Router   /api/users/leaderboard [get]
func Leaderboard(svc service.DirectoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, ok := queryInt(c, "limit")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "Invalid limit")
		}
		entries, err := svc.Leaderboard(c.UserContext(), limit)
		if err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, fiber.Map{"leaderboard": nonNil(entries)})
	}
}

// Experts searches users by department, region and expertise.
//
// @Summary  Find experts
// @Tags     users
// @Produce  json
// @Param    department query string false "Department"
// @Param    region     query string false "Region"
// @Param    expertise  query string false "Expertise substring"
// @Param    search     query string false "Name or expertise substring"
// @Success  200 {object} map[string]any
// @Security BearerAuth
// @Router   /api/users/experts [get]
func Experts(svc service.DirectoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		experts, err := svc.Experts(c.UserContext(), repository.ExpertFilter{
			Department: c.Query("department"),
			Region:     c.Query("region"),
			Expertise:  c.Query("expertise"),
			Search:     c.Query("search"),
		})
		if err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, fiber.Map{
			"count":   len(experts),
			"experts": nonNil(experts),
		})
	}
}

// UserStats reports a user's contribution totals and rank. Without an id
// the caller's own stats are returned.
//
// @Summary  User stats
// @Tags     users
// @Produce  json
// @Param    id path int false "User ID"
// @Success  200 {object} map[string]any
// @Security BearerAuth
// @Router   /api/users/stats/{id} [get]
func UserStats(svc service.DirectoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		if raw := c.Params("id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "Invalid user id")
			}
			userID = id
		}

		stats, err := svc.Stats(c.UserContext(), userID)
		if err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, fiber.Map{"stats": stats})
	}
}

// Departments lists the distinct departments of all users.
//
// @Summary  Departments
// @Tags     users
// @Produce  json
// @Success  200 {object} map[string]any
// @Security BearerAuth
// @Router   /api/users/departments [get]
func Departments(svc service.DirectoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.Departments(c.UserContext())
		if err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, fiber.Map{"departments": nonNil(out)})
	}
}

// Regions lists the distinct regions of all users.
//
// @Summary  Regions
// @Tags     users
// @Produce  json
// @Success  200 {object} map[string]any
// @Security BearerAuth
// @Router   /api/users/regions [get]
func Regions(svc service.DirectoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.Regions(c.UserContext())
		if err != nil {
			return handleError(c, err)
		}
		return writeSuccess(c, fiber.StatusOK, fiber.Map{"regions": nonNil(out)})
	}
}
