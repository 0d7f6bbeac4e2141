package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"attendance-tracker/backend/config"
	"attendance-tracker/backend/internal/client"
	"attendance-tracker/backend/pkg/logger"
)

func main() {
	configPath := os.Getenv("ATTENDCTL_CONFIG")

	cfg, logCfg, err := config.LoadClient(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewCLILogger(logCfg.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cli := &commandLine{
		out:       os.Stdout,
		credsPath: cfg.CredentialsFile,
		logger:    log,
		newBackend: func(creds client.Credentials) backend {
			return client.New(cfg.BaseURL, creds, client.WithTimeout(cfg.Timeout), client.WithLogger(log))
		},
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp && err != flag.ErrHelp {
			log.Debug("命令执行失败", zap.Error(err))
			fmt.Fprintf(os.Stderr, "错误: %s\n", userMessage(err))
		}
		os.Exit(1)
	}
}
