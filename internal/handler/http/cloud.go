package http

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"inkboard/internal/service"
)

// 点云上传的大小上限。ASCII 点云文件可以很大，但总得有个界。
const maxCloudFileSize = 64 << 20 // 64 MiB

// CloudHandler 暴露点云导入/清除的 HTTP 操作面。
type CloudHandler struct {
	svc *service.SessionService
}

// NewCloudHandler 创建点云 Handler。
func NewCloudHandler(svc *service.SessionService) *CloudHandler {
	if svc == nil {
		panic("session service cannot be nil for CloudHandler")
	}
	return &CloudHandler{svc: svc}
}

// Import 接收一个 multipart 文件并导入为点云。
// 只按文件名后缀（.pcd）筛选，不做内容嗅探；解码失败返回 422，
// 不影响已加载的点云。
func (h *CloudHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "missing file field")
		return
	}
	if fileHeader.Size > maxCloudFileSize {
		ErrorResponse(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	name := filepath.Base(fileHeader.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pcd") {
		ErrorResponse(c, http.StatusUnsupportedMediaType, "only .pcd files are supported")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		logrus.WithError(err).Error("Failed to open uploaded file")
		ErrorResponse(c, http.StatusInternalServerError, "failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxCloudFileSize+1))
	if err != nil {
		logrus.WithError(err).Error("Failed to read uploaded file")
		ErrorResponse(c, http.StatusInternalServerError, "failed to read upload")
		return
	}

	cloud, err := h.svc.ImportCloud(name, data)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, gin.H{
		"name":   cloud.Name,
		"points": len(cloud.Points),
	})
}

// List 返回已导入点云的概要。
func (h *CloudHandler) List(c *gin.Context) {
	clouds := h.svc.Clouds()
	summaries := make([]gin.H, 0, len(clouds))
	for _, cloud := range clouds {
		summaries = append(summaries, gin.H{
			"name":   cloud.Name,
			"points": len(cloud.Points),
		})
	}
	SuccessResponse(c, http.StatusOK, gin.H{"clouds": summaries})
}

// Clear 移除全部已导入点云。
func (h *CloudHandler) Clear(c *gin.Context) {
	h.svc.ClearClouds()
	SuccessResponse(c, http.StatusOK, gin.H{"clouds": []any{}})
}
