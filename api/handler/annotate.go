package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/api/middleware"
	"github.com/fyerfyer/med-kb-engine/api/model"
	"github.com/fyerfyer/med-kb-engine/internal/annotator"
)

// 标注接口允许的内容类型
var allowedContentTypes = map[string]bool{
	"":          true, // 默认general
	"general":   true,
	"pathology": true,
	"diagnosis": true,
	"treatment": true,
}

// AnnotateHandler 处理医疗文本标注相关的API请求
type AnnotateHandler struct {
	engine *annotator.Engine // 标注引擎
	logger *logrus.Logger    // 日志记录器
}

// NewAnnotateHandler 创建标注处理器
func NewAnnotateHandler(engine *annotator.Engine) *AnnotateHandler {
	return &AnnotateHandler{
		engine: engine,
		logger: middleware.GetLogger(),
	}
}

// Annotate 处理文本标注请求
// POST /api/annotate
func (h *AnnotateHandler) Annotate(c *gin.Context) {
	var req model.AnnotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的请求参数：content为必填项",
		))
		return
	}

	if !allowedContentTypes[req.ContentType] {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"不支持的内容类型: "+req.ContentType,
		))
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "general"
	}

	result := h.engine.Annotate(req.Content, nil, contentType)
	if !result.Success {
		h.logger.WithFields(logrus.Fields{
			"error": result.Error,
		}).Warn("Annotation failed")
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}
