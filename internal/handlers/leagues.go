// Package handlers contains the HTTP route handlers for the Racing League API.
//
// Each exported function follows the "handler factory" pattern: it takes the
// dependencies it needs (the store, the cache, the broadcast hub) and returns a
// fiber.Handler, so nothing is kept in package globals.
//
// --- Permission model ---
// Two layers of access control are used:
//
//  1. Route-level (middleware.RequireRole): only "admin" and "manager" global
//     roles can create leagues. Every authenticated user can read standings.
//
//  2. Resource-level (canManage): entering results, changing round status or
//     scoring, and taking snapshots need the "organizer" membership of the
//     league that owns the season. Global admins can manage any league.
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
)

// LeagueResponse is what we send back for a league. A dedicated struct keeps the
// GORM model out of the JSON and carries computed fields like MemberCount.
type LeagueResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	CreatorName string  `json:"creator_name"`
	MemberCount int64   `json:"member_count"`
	CreatedAt   string  `json:"created_at"` // ISO 8601 timestamp
}

// CreateLeagueRequest is the JSON body we expect on POST /api/v1/leagues.
type CreateLeagueRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// GetLeagues returns a handler for GET /api/v1/leagues.
//   - Admins see every league.
//   - Everyone else sees only leagues they are a member of.
func GetLeagues(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userRole, err := currentUser(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}

		var leagues []models.League
		query := db.WithContext(c.UserContext()).Preload("Creator").Order("leagues.created_at, leagues.id")
		if userRole == string(models.UserRoleAdmin) {
			query = query.Find(&leagues)
		} else {
			query = query.
				Joins("JOIN league_members ON league_members.league_id = leagues.id").
				Where("league_members.user_id = ?", userID).
				Find(&leagues)
		}
		if query.Error != nil {
			return fail(c, query.Error)
		}

		counts, err := memberCounts(db.WithContext(c.UserContext()), leagues)
		if err != nil {
			return fail(c, err)
		}

		response := make([]LeagueResponse, 0, len(leagues))
		for _, league := range leagues {
			response = append(response, LeagueResponse{
				ID:          league.ID.String(),
				Name:        league.Name,
				Description: league.Description,
				CreatorName: league.Creator.DisplayName,
				MemberCount: counts[league.ID],
				CreatedAt:   league.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return c.JSON(response)
	}
}

// memberCounts counts memberships for every listed league in one query.
func memberCounts(db *gorm.DB, leagues []models.League) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(leagues))
	if len(leagues) == 0 {
		return counts, nil
	}
	ids := make([]uuid.UUID, len(leagues))
	for i, l := range leagues {
		ids[i] = l.ID
	}

	var rows []struct {
		LeagueID uuid.UUID
		Members  int64
	}
	err := db.Model(&models.LeagueMember{}).
		Select("league_id, COUNT(*) AS members").
		Where("league_id IN ?", ids).
		Group("league_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.LeagueID] = r.Members
	}
	return counts, nil
}

// CreateLeague returns a handler for POST /api/v1/leagues.
// Requires "admin" or "manager" role (enforced by RequireRole on the route).
// The creator becomes the league's first organizer in the same transaction.
func CreateLeague(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := currentUser(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}

		var req CreateLeagueRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Name == "" {
			return badRequest(c, "name is required")
		}

		var created models.League
		txErr := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			league := models.League{
				Name:        req.Name,
				Description: req.Description,
				CreatedBy:   userID,
			}
			if err := tx.Create(&league).Error; err != nil {
				return err
			}

			member := models.LeagueMember{
				LeagueID: league.ID,
				UserID:   userID,
				Role:     models.LeagueMemberRoleOrganizer,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			created = league
			return nil
		})
		if txErr != nil {
			return fail(c, txErr)
		}

		var creator models.User
		if err := db.WithContext(c.UserContext()).First(&creator, "id = ?", userID).Error; err != nil {
			return fail(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(LeagueResponse{
			ID:          created.ID.String(),
			Name:        created.Name,
			Description: created.Description,
			CreatorName: creator.DisplayName,
			MemberCount: 1,
			CreatedAt:   created.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
}
