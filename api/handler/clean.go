package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/api/middleware"
	"github.com/fyerfyer/med-kb-engine/api/model"
	"github.com/fyerfyer/med-kb-engine/internal/cleaner"
	"github.com/fyerfyer/med-kb-engine/internal/document"
)

// CleanHandler 处理文本清洗相关的API请求
type CleanHandler struct {
	cleaner *cleaner.Cleaner // 文本清洗器
	logger  *logrus.Logger   // 日志记录器
}

// NewCleanHandler 创建清洗处理器
func NewCleanHandler(c *cleaner.Cleaner) *CleanHandler {
	return &CleanHandler{
		cleaner: c,
		logger:  middleware.GetLogger(),
	}
}

// Clean 处理文本清洗请求
// POST /api/clean
func (h *CleanHandler) Clean(c *gin.Context) {
	var req model.CleanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的请求参数",
		))
		return
	}

	// 三种输入必须恰好提供一种
	if req.InputCount() != 1 {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"text_content、file_path、batch_file_paths必须恰好提供一个",
		))
		return
	}

	switch {
	case req.TextContent != "":
		result := h.cleaner.Clean(req.TextContent)
		c.JSON(http.StatusOK, model.NewSuccessResponse(result))

	case req.FilePath != "":
		content, err := h.loadFile(req.FilePath)
		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"file":  req.FilePath,
				"error": err.Error(),
			}).Warn("Failed to load file for cleaning")

			c.JSON(http.StatusBadRequest, model.NewErrorResponse(
				http.StatusBadRequest,
				"无法读取文件: "+err.Error(),
			))
			return
		}
		result := h.cleaner.Clean(content)
		c.JSON(http.StatusOK, model.NewSuccessResponse(result))

	default:
		report := h.cleaner.BatchClean(req.BatchFilePaths)
		c.JSON(http.StatusOK, model.NewSuccessResponse(report))
	}
}

// loadFile 通过文档加载器读取文件内容
func (h *CleanHandler) loadFile(path string) (string, error) {
	loader, err := document.LoaderFactory(path)
	if err != nil {
		return "", err
	}
	return loader.Load(path)
}
