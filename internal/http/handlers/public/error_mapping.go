package public

import (
	"errors"

	handlershared "github.com/vipo-core/internal/http/handlers/shared"
	"github.com/vipo-core/internal/http/response"
	"github.com/vipo-core/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var webhookIngestErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidParams, code: response.CodeBadRequest, msg: "payment event payload invalid"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
}

func respondWebhookIngestError(c *gin.Context, err error) {
	respondWithMappedError(c, err, webhookIngestErrorRules, response.CodeInternal, "payment event ingest failed")
}
