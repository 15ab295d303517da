package public

import "github.com/vipo-core/internal/provider"

// Handler 对外接口处理器入口
// 说明：该处理器仅用于支付 webhook 与 cron 触发 API。
type Handler struct {
	*provider.Container
}

// New 创建对外处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
