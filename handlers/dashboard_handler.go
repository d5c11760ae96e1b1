package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mchoapp/backend/cache"
	"github.com/mchoapp/backend/config"
	"github.com/mchoapp/backend/middleware"
)

// DashboardHandler serves the per-role counter widgets shown on each
// staff dashboard. Counters are plain aggregates cached briefly so the
// dashboards stay cheap under polling.
type DashboardHandler struct {
	config *config.Config
	logger *zap.Logger
	pgPool *pgxpool.Pool
	cache  *cache.Cache
}

const dashboardCacheTTL = 60 * time.Second

func NewDashboardHandler(cfg *config.Config, logger *zap.Logger, pgPool *pgxpool.Pool, redisClient *redis.Client) *DashboardHandler {
	return &DashboardHandler{
		config: cfg,
		logger: logger,
		pgPool: pgPool,
		cache:  cache.NewCache(redisClient, "dashboard:"),
	}
}

// counterQueries maps each widget name to its aggregate query, per role.
var counterQueries = map[middleware.Role]map[string]string{
	middleware.RoleAdmin: {
		"patients_total":      `SELECT COUNT(*) FROM patients`,
		"patients_new_today":  `SELECT COUNT(*) FROM patients WHERE created_at::date = CURRENT_DATE`,
		"staff_total":         `SELECT COUNT(*) FROM staff`,
		"consultations_today": `SELECT COUNT(*) FROM consultations WHERE created_at::date = CURRENT_DATE`,
	},
	middleware.RoleCashier: {
		"unpaid_bills":   `SELECT COUNT(*) FROM bills WHERE status = 'unpaid'`,
		"payments_today": `SELECT COUNT(*) FROM bills WHERE status = 'paid' AND paid_at::date = CURRENT_DATE`,
	},
	middleware.RoleDoctor: {
		"consultations_today": `SELECT COUNT(*) FROM consultations WHERE created_at::date = CURRENT_DATE`,
		"queue_waiting":       `SELECT COUNT(*) FROM consultations WHERE status = 'waiting'`,
	},
	middleware.RoleNurse: {
		"immunizations_today": `SELECT COUNT(*) FROM immunizations WHERE created_at::date = CURRENT_DATE`,
		"queue_waiting":       `SELECT COUNT(*) FROM consultations WHERE status = 'waiting'`,
	},
	middleware.RoleLabTech: {
		"lab_requests_pending": `SELECT COUNT(*) FROM lab_requests WHERE status = 'pending'`,
		"lab_results_today":    `SELECT COUNT(*) FROM lab_requests WHERE status = 'released' AND released_at::date = CURRENT_DATE`,
	},
}

// GetDashboard returns the counters for the authenticated staff role.
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(middleware.Role)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have access to this resource",
		})
	}

	queries, ok := counterQueries[role]
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "No dashboard for this role",
		})
	}

	var counters map[string]int64
	err := h.cache.Remember(c.Context(), string(role), &counters, dashboardCacheTTL, func() (interface{}, error) {
		return h.collectCounters(c.Context(), queries), nil
	})
	if err != nil {
		h.logger.Error("failed to build dashboard",
			zap.Error(err),
			zap.String("role", string(role)))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load dashboard",
		})
	}

	return c.JSON(fiber.Map{
		"role":     role,
		"counters": counters,
	})
}

// collectCounters runs each widget query, degrading a failed counter to
// zero so one unmigrated table never blanks the whole dashboard.
func (h *DashboardHandler) collectCounters(ctx context.Context, queries map[string]string) map[string]int64 {
	counters := make(map[string]int64, len(queries))
	for name, query := range queries {
		queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		var count int64
		if err := h.pgPool.QueryRow(queryCtx, query).Scan(&count); err != nil {
			h.logger.Warn("dashboard counter failed",
				zap.String("counter", name),
				zap.Error(err))
			count = 0
		}
		cancel()
		counters[name] = count
	}
	return counters
}
