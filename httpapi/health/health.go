// Package healthservice reports whether the backend can reach its dependencies.
package healthservice

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/httpapi"
	"github.com/redis/rueidis"
	"gorm.io/gorm"
)

const checkTimeout = 2 * time.Second

// Check reports an error when a dependency is unhealthy.
type Check func(ctx context.Context) error

// DatabaseCheck pings the database.
func DatabaseCheck(db *gorm.DB) Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// RedisCheck pings Redis.
func RedisCheck(client rueidis.Client) Check {
	return func(ctx context.Context) error {
		return client.Do(ctx, client.B().Ping().Build()).Error()
	}
}

type HealthService struct {
	checks map[string]Check
}

func NewHealthService(checks map[string]Check) *HealthService {
	return &HealthService{checks: checks}
}

var _ httpapi.Service = (*HealthService)(nil)

func (s *HealthService) Register(router gin.IRouter) {
	router.GET("/healthz", s.Healthz)
}

// Healthz responds 200 when every check passes and 503 otherwise.
// GET /healthz
func (s *HealthService) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.Warn("health check failed", "check", name, "error", err)
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
}
