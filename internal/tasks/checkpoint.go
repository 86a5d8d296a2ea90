// Package tasks 承载会话期间的后台周期任务。
package tasks

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"inkboard/internal/repository"
)

// RunCheckpointLoop 周期性地把存储引擎的未落盘数据刷到磁盘，
// 直到 ctx 取消。刷盘失败只记日志，下个周期重试。
func RunCheckpointLoop(ctx context.Context, repo repository.StrokeRepository, interval time.Duration) {
	if interval <= 0 {
		return
	}
	log := logrus.WithField("component", "checkpoint")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithField("interval", interval).Info("Checkpoint loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Checkpoint loop stopped")
			return
		case <-ticker.C:
			if err := repo.Checkpoint(ctx); err != nil {
				log.WithError(err).Warn("Store checkpoint failed")
			}
		}
	}
}
