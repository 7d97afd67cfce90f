package main

import (
	"go.uber.org/zap"

	_ "github.com/taoyao-code/swap-server/docs"
	"github.com/taoyao-code/swap-server/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/swap-server/internal/config"
	"github.com/taoyao-code/swap-server/internal/logging"
)

// @title Swap Server API
// @version 1.0
// @description 电池换电事务服务：预约、换电提交与撤销、站点库存
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	// 1) 加载配置（SWAP_CONFIG 指定文件，SWAP_ 前缀环境变量覆盖）
	cfg, err := cfgpkg.Load("")
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging, zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Env))
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动并阻塞至收到退出信号
	if err := bootstrap.Run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}
