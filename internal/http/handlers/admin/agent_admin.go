package admin

import (
	"strconv"
	"strings"

	"github.com/vipo-core/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetAgent 查询代理及其佣金余额。
func (h *Handler) GetAgent(c *gin.Context) {
	log := requestLog(c)
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "agent id invalid", nil)
		return
	}
	if h.AgentRepo == nil {
		respondError(c, response.CodeInternal, "agent repository unavailable", nil)
		return
	}

	agent, err := h.AgentRepo.GetByID(uint(id))
	if err != nil {
		log.Warnw("admin_get_agent_failed", "agent_id", id, "error", err)
		respondError(c, response.CodeInternal, "agent fetch failed", err)
		return
	}
	if agent == nil {
		respondError(c, response.CodeNotFound, "agent not found", nil)
		return
	}
	response.Success(c, agent)
}
