// Package main 是应用程序的入口点。
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hotel-insights",
		Short: "酒店预订分析与问答服务",
		// 不带子命令时启动 HTTP 服务
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	root.AddCommand(newServeCmd(), newGenerateCmd(), newReindexCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
