// 导入演示题目与错题本数据
//
// 用法: go run scripts/seed_questions.go -fixture testdata/seed.yaml

package main

import (
	"context"
	"flag"
	"learning_progress/internal/config"
	"learning_progress/internal/seed"
	"learning_progress/pkg/database"
	"learning_progress/pkg/logger"
	"log"

	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件所在目录")
	fixture := flag.String("fixture", "testdata/seed.yaml", "YAML 夹具文件")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, true)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	f, err := seed.LoadFile(*fixture)
	if err != nil {
		log.Fatalf("读取夹具失败: %v", err)
	}

	stats, err := seed.Apply(context.Background(), db, f)
	if err != nil {
		logger.Log.Fatal("导入失败", zap.Error(err))
	}
	logger.Log.Info("导入完成",
		zap.Int("users", stats.Users),
		zap.Int("questions", stats.Questions),
		zap.Int("errorBook", stats.ErrorBook))
}
