// @title Study Buddy 后端 API
// @version 1.0
// @description 学习卡片与游戏化（经验、等级、连续学习、徽章、排行榜）服务。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"fmt"
	"os"
	"study_buddy_backend/internal/app"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/pkg/logger"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configDir string

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:          "study-buddy",
	Short:        "Study Buddy 学习卡片与游戏化服务",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// 启动时强制执行数据库迁移（即使是 release 模式）
		cfg.ForceMigrate, _ = cmd.Flags().GetBool("migrate")

		application, err := app.NewApp(cfg)
		if err != nil {
			return err
		}
		return application.Run()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "只执行数据库迁移，完成后退出",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.ForceMigrate = true
		cfg.MigrateOnly = true

		application, err := app.NewApp(cfg)
		if err != nil {
			return err
		}
		defer application.Close()

		logger.Log.Info("数据库迁移完成，退出程序")
		return nil
	},
}

var reevaluateCmd = &cobra.Command{
	Use:   "reevaluate",
	Short: "为全部用户重新评估徽章",
	Long:  "手动触发徽章评估，例如规则调整或批量导入学习记录之后。失败的用户会进入待重试队列。",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		application, err := app.NewApp(cfg)
		if err != nil {
			return err
		}
		defer application.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		users, awarded, err := application.ReevaluateAll(ctx, concurrency)
		if err != nil {
			return err
		}
		logger.Log.Info("Badge re-evaluation finished",
			zap.Int("users", users),
			zap.Int("awarded", awarded),
		)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "configs", "配置文件目录")

	serveCmd.Flags().Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	reevaluateCmd.Flags().Int("concurrency", 4, "并发评估的用户数")
	reevaluateCmd.Flags().Duration("timeout", 10*time.Minute, "整体超时时间")

	rootCmd.AddCommand(serveCmd, migrateCmd, reevaluateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
