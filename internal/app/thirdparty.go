package app

import (
	cfgpkg "github.com/taoyao-code/swap-server/internal/config"
	"github.com/taoyao-code/swap-server/internal/thirdparty"
)

// NewPusherIfEnabled 根据配置创建第三方推送器，未配置 webhook 时返回 nil
func NewPusherIfEnabled(cfg cfgpkg.PushConfig) *thirdparty.Pusher {
	if cfg.WebhookURL == "" || cfg.Secret == "" {
		return nil
	}
	return thirdparty.NewPusher(nil, cfg.APIKey, cfg.Secret)
}
