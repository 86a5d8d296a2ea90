package service

import (
	"fmt"

	"inkboard/internal/domain"
	"inkboard/internal/pointcloud"
)

// 点云是会话内存中的展示数据，从不写入存储；这些方法不要求会话
// ready，存储不可用时点云功能照常可用。

// ImportCloud 解码一份 ASCII 点云文件并加入场景。
// 文件名后缀校验由接入层负责；这里只管解码。
// 单个文件解码失败不影响已加载的点云。
func (s *SessionService) ImportCloud(name string, data []byte) (*domain.PointCloud, error) {
	cloud, err := pointcloud.Decode(data)
	if err != nil {
		s.log.WithError(err).WithField("file", name).Warn("Point cloud decode failed")
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	cloud.Name = name

	s.mu.Lock()
	s.clouds = append(s.clouds, *cloud)
	total := len(s.clouds)
	s.mu.Unlock()

	s.log.WithFields(map[string]interface{}{
		"file":   name,
		"points": len(cloud.Points),
		"clouds": total,
	}).Info("Point cloud imported")
	s.notifyRenderer()
	return cloud, nil
}

// Clouds 返回已导入点云列表的副本。
func (s *SessionService) Clouds() []domain.PointCloud {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PointCloud, len(s.clouds))
	copy(out, s.clouds)
	return out
}

// ClearClouds 移除全部已导入点云。
func (s *SessionService) ClearClouds() {
	s.mu.Lock()
	s.clouds = nil
	s.mu.Unlock()
	s.notifyRenderer()
}
