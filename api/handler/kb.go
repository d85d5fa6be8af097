package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/api/middleware"
	"github.com/fyerfyer/med-kb-engine/api/model"
	"github.com/fyerfyer/med-kb-engine/internal/kb"
	"github.com/fyerfyer/med-kb-engine/internal/qagen"
)

// KBHandler 处理知识库相关的API请求
type KBHandler struct {
	integrator *kb.Integrator // 知识库集成器
	logger     *logrus.Logger // 日志记录器
}

// NewKBHandler 创建知识库处理器
func NewKBHandler(integrator *kb.Integrator) *KBHandler {
	return &KBHandler{
		integrator: integrator,
		logger:     middleware.GetLogger(),
	}
}

// Handle 根据action分发知识库操作
// POST /api/kb
func (h *KBHandler) Handle(c *gin.Context) {
	var req model.KBRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			model.BindErrorMessage(err, "无效的请求参数：action为必填项"),
		))
		return
	}

	ctx := c.Request.Context()

	switch req.Action {
	case "create_index":
		result := h.integrator.CreateIndex(ctx, req.IndexName)
		c.JSON(http.StatusOK, model.NewSuccessResponse(result))

	case "integrate_data", "store":
		pairs, err := h.parseDataset(req.QADataset)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.NewErrorResponse(
				http.StatusBadRequest,
				"qa_dataset解析失败: "+err.Error(),
			))
			return
		}
		report := h.integrator.Integrate(ctx, pairs, req.IndexName)
		c.JSON(http.StatusOK, model.NewSuccessResponse(report))

	case "search":
		topK := req.TopK
		if topK <= 0 {
			topK = 10
		}
		report := h.integrator.Search(ctx, req.IndexName, req.Query, req.SearchType, topK)
		c.JSON(http.StatusOK, model.NewSuccessResponse(report))

	case "list_indices":
		report := h.integrator.ListIndices(ctx)
		c.JSON(http.StatusOK, model.NewSuccessResponse(report))

	case "delete_index":
		result := h.integrator.DeleteIndex(ctx, req.IndexName)
		c.JSON(http.StatusOK, model.NewSuccessResponse(result))

	default:
		h.logger.WithFields(logrus.Fields{
			"action": req.Action,
		}).Warn("Unknown knowledge base action")

		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"不支持的操作: "+req.Action,
		))
	}
}

// parseDataset 解析请求中的问答数据集
// 兼容{"qa_pairs":[...]}对象和裸数组两种形式
func (h *KBHandler) parseDataset(raw json.RawMessage) ([]qagen.QAPair, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var payload model.QADatasetPayload
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.QAPairs) > 0 {
		raw = payload.QAPairs
	}

	var pairs []qagen.QAPair
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}
