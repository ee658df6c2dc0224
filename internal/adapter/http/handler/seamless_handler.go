package handler

import (
	"casino-core/internal/adapter/http/dto"
	"casino-core/internal/core/ports"
	"casino-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// SeamlessHandler receives provider wallet callbacks. Every outcome is an
// HTTP 200 envelope; failures are carried in code and msg.
type SeamlessHandler struct {
	gateway ports.GatewayService
}

func NewSeamlessHandler(gateway ports.GatewayService) *SeamlessHandler {
	return &SeamlessHandler{gateway: gateway}
}

// Callback handles POST /seamless/:provider/{bet,rollback,balance}.
func (h *SeamlessHandler) Callback(kind ports.CallbackKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		// An unreadable envelope leaves Payload empty and the gateway rejects it.
		var env dto.SeamlessEnvelope
		_ = c.ShouldBindJSON(&env)

		reply := h.gateway.Handle(c.Request.Context(), ports.SeamlessRequest{
			Provider:  c.Param("provider"),
			Kind:      kind,
			Timestamp: env.Timestamp,
			Payload:   env.Payload,
			ClientIP:  c.ClientIP(),
		})
		response.Seamless(c, response.SeamlessResponse{
			Code:    reply.Code,
			Msg:     reply.Msg,
			Payload: reply.Payload,
		})
	}
}
