package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful back-office writes and seed rotations.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
			"actor":  c.GetString(CtxCashier),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       subjectOf(c),
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

// subjectOf is the player the request acted on: the path user for cashier
// routes, the token user for player routes.
func subjectOf(c *gin.Context) *int64 {
	if raw := c.Param("user_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &id
		}
	}
	if id, ok := UserID(c); ok {
		return &id
	}
	return nil
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	if method != http.MethodPost {
		return "", ""
	}
	switch route {
	case "/api/v1/cashier/players/:user_id/deposits":
		return domain.AuditActionDeposit, "wallet"
	case "/api/v1/cashier/players/:user_id/withdrawals":
		return domain.AuditActionWithdrawLock, "wallet"
	case "/api/v1/cashier/players/:user_id/withdrawals/approve",
		"/api/v1/cashier/players/:user_id/withdrawals/reject":
		return domain.AuditActionWithdrawReview, "wallet"
	case "/api/v1/cashier/players/:user_id/bonuses",
		"/api/v1/cashier/bonuses/:id/forfeit":
		return domain.AuditActionBonus, "bonus_grant"
	case "/api/v1/cashier/transfers":
		return domain.AuditActionTransfer, "wallet"
	case "/api/v1/seeds/rotate":
		return domain.AuditActionSeedRotate, "seed_pair"
	}
	return "", ""
}
