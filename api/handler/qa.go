package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/api/middleware"
	"github.com/fyerfyer/med-kb-engine/api/model"
	"github.com/fyerfyer/med-kb-engine/internal/annotator"
	"github.com/fyerfyer/med-kb-engine/internal/qagen"
)

// QAHandler 处理问答对生成相关的API请求
type QAHandler struct {
	generator *qagen.Generator // 问答生成器
	logger    *logrus.Logger   // 日志记录器
}

// NewQAHandler 创建问答生成处理器
func NewQAHandler(generator *qagen.Generator) *QAHandler {
	return &QAHandler{
		generator: generator,
		logger:    middleware.GetLogger(),
	}
}

// Generate 处理问答对生成请求
// POST /api/qa/generate
func (h *QAHandler) Generate(c *gin.Context) {
	var req model.GenerateQARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的请求参数：annotated_content为必填项",
		))
		return
	}

	// JSON格式错误与字段缺失是不同的错误
	var annotated annotator.Result
	if err := json.Unmarshal(req.AnnotatedContent, &annotated); err != nil {
		h.logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Malformed annotated content")

		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"annotated_content不是合法的JSON: "+err.Error(),
		))
		return
	}

	qaCount := req.QACount
	if qaCount <= 0 {
		qaCount = 10
	}

	result := h.generator.Generate(&annotated, qaCount)
	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}
