// @title MathDiag 诊断导航 API
// @version 1.0
// @description 数学误解自适应诊断评估的后端服务器。
// @termsOfService http://swagger.io/terms/

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"log"

	"mathdiag_backend/internal/app"
	"mathdiag_backend/internal/config"
	"mathdiag_backend/pkg/configwatcher"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)

	// 配置热更新：阈值改动无需重启即可生效
	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
		if loaded, ok := newCfg.(*config.Config); ok {
			application.ApplyConfig(loaded)
		}
	})

	application.Run()
}
