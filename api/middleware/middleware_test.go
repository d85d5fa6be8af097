package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/med-kb-engine/api/model"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SetTraceID())
	r.Use(ErrorMiddleware())
	return r
}

func doRequest(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, model.Response) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp model.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

// TestErrorMiddleware 测试统一错误处理中间件
func TestErrorMiddleware(t *testing.T) {
	r := newTestRouter()
	r.GET("/validation", func(c *gin.Context) {
		HandleError(c, NewValidationError("缺少输入文本", "input_content为空"))
	})
	r.GET("/notfound", func(c *gin.Context) {
		HandleError(c, NewNotFoundError("索引不存在"))
	})
	r.GET("/kb", func(c *gin.Context) {
		HandleError(c, NewKnowledgeBaseError("索引创建失败", "connection refused"))
	})
	r.GET("/internal", func(c *gin.Context) {
		HandleError(c, NewInternalError("服务内部错误"))
	})
	r.GET("/plain", func(c *gin.Context) {
		HandleError(c, errors.New("unexpected failure"))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("annotation engine is nil")
	})

	t.Run("ValidationError", func(t *testing.T) {
		w, resp := doRequest(t, r, "/validation")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "缺少输入文本", resp.Message, "响应消息应为处理器设置的错误消息")
		assert.NotEmpty(t, resp.TraceID, "错误响应应携带追踪ID")
	})

	t.Run("NotFoundError", func(t *testing.T) {
		w, resp := doRequest(t, r, "/notfound")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "索引不存在", resp.Message)
	})

	t.Run("KnowledgeBaseError", func(t *testing.T) {
		w, resp := doRequest(t, r, "/kb")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "索引创建失败", resp.Message, "详细信息只进日志，不进响应")
	})

	t.Run("InternalError", func(t *testing.T) {
		w, _ := doRequest(t, r, "/internal")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("PlainErrorTreatedAsInternal", func(t *testing.T) {
		w, resp := doRequest(t, r, "/plain")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", resp.Message, "未分类错误不应泄露内部细节")
	})

	t.Run("PanicRecovered", func(t *testing.T) {
		w, resp := doRequest(t, r, "/panic")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotEmpty(t, resp.TraceID)
	})
}

// TestAppErrorMessage 测试应用错误的消息格式
func TestAppErrorMessage(t *testing.T) {
	withDetails := NewCorpusError("保存文件失败", "disk full")
	assert.Equal(t, "CORPUS_ERROR: 保存文件失败 (disk full)", withDetails.Error())

	withoutDetails := NewPipelineError("任务提交失败")
	assert.Equal(t, "PIPELINE_ERROR: 任务提交失败", withoutDetails.Error())
}

// TestSetTraceID 测试请求追踪中间件
func TestSetTraceID(t *testing.T) {
	r := newTestRouter()
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.NewSuccessResponse(nil))
	})

	t.Run("GeneratesTraceID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.NotEmpty(t, w.Header().Get("X-Trace-ID"), "缺失追踪ID时应自动生成")
	})

	t.Run("PreservesIncomingTraceID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Trace-ID", "trace-abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "trace-abc-123", w.Header().Get("X-Trace-ID"))
	})
}
