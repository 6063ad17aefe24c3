package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"hotel-insights-go/pkg/log"
)

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "重新生成洞察并持久化索引",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd.Context())
		},
	}
}

func runReindex(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, bookingRepo := bootstrap()
	defer log.Sync()

	a, err := newApp(ctx, cfg, bookingRepo)
	if err != nil {
		return err
	}
	rebuildCtx, cancel := context.WithTimeout(ctx, cfg.Refresh.RebuildTimeout())
	defer cancel()

	snap, err := a.insightService.Refresh(rebuildCtx)
	if err != nil {
		log.Errorf("[Reindex] 重建失败: %v", err)
		return err
	}
	fmt.Printf("index rebuilt: %d insights, dimension %d\n", len(snap.Insights), snap.Index.Dimension())
	return nil
}
