package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fyerfyer/med-kb-engine/api/handler"
	"github.com/fyerfyer/med-kb-engine/api/model"
	"github.com/fyerfyer/med-kb-engine/internal/annotator"
	"github.com/fyerfyer/med-kb-engine/internal/cleaner"
	"github.com/fyerfyer/med-kb-engine/internal/kb"
	"github.com/fyerfyer/med-kb-engine/internal/models"
	"github.com/fyerfyer/med-kb-engine/internal/pipeline"
	"github.com/fyerfyer/med-kb-engine/internal/qagen"
	"github.com/fyerfyer/med-kb-engine/internal/repository"
	"github.com/fyerfyer/med-kb-engine/internal/searchengine"
	"github.com/fyerfyer/med-kb-engine/pkg/storage"
)

const samplePathologyText = "第3页 肺癌是指起源于支气管黏膜或腺体的恶性肿瘤。肺癌患者常出现咳嗽和咯血症状。" +
	"肺癌的诊断需要病理检查和影像学检查。肺癌的治疗方法包括手术切除和化疗。"

// 测试环境配置
type testEnv struct {
	Router     *gin.Engine
	Engine     searchengine.Engine
	Repo       repository.RunRepository
	Storage    storage.Storage
	Integrator *kb.Integrator
}

// 创建测试环境
func setupTestEnv(t *testing.T) *testEnv {
	// 设置测试模式
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	// 创建本地存储
	fileStorage, err := storage.NewLocalStorage(storage.LocalConfig{
		Path: t.TempDir(),
	})
	require.NoError(t, err)

	// 创建内存搜索引擎和知识库集成器
	engine := searchengine.NewMemoryEngine()
	integrator := kb.NewIntegrator(engine, logger)

	// 创建内存数据库
	dbName := fmt.Sprintf("file:memdb_api_%d?mode=memory", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PipelineRun{}, &models.QARecord{}))
	repo := repository.NewRunRepository(db)

	// 创建流水线编排器
	orchestrator := pipeline.NewOrchestrator(logger,
		pipeline.WithIntegrator(integrator),
		pipeline.WithRepository(repo),
	)

	router := SetupRouter(Handlers{
		Clean:    handler.NewCleanHandler(cleaner.NewCleaner(cleaner.DefaultConfig(), logger)),
		Annotate: handler.NewAnnotateHandler(annotator.NewEngine(logger)),
		QA:       handler.NewQAHandler(qagen.NewGenerator(logger)),
		Pipeline: handler.NewPipelineHandler(orchestrator, nil),
		KB:       handler.NewKBHandler(integrator),
		Corpus:   handler.NewCorpusHandler(fileStorage),
		Run:      handler.NewRunHandler(repo),
	})

	return &testEnv{
		Router:     router,
		Engine:     engine,
		Repo:       repo,
		Storage:    fileStorage,
		Integrator: integrator,
	}
}

// postJSON 发送JSON请求并返回响应
func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeResponse 解析通用响应结构
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) *model.Response {
	var resp model.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestCleanEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("TextContent", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/clean", gin.H{"text_content": samplePathologyText})
		assert.Equal(t, http.StatusOK, w.Code)

		resp := decodeResponse(t, w)
		assert.Equal(t, 0, resp.Code)

		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var result cleaner.CleaningResult
		require.NoError(t, json.Unmarshal(data, &result))
		assert.True(t, result.Success)
		assert.NotContains(t, result.CleanedText, "第3页")
	})

	t.Run("ConflictingInputs", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/clean", gin.H{
			"text_content": "文本",
			"file_path":    "/tmp/a.txt",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("NoInput", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/clean", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAnnotateEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("Success", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/annotate", gin.H{
			"content":      samplePathologyText,
			"content_type": "pathology",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		resp := decodeResponse(t, w)
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var result annotator.Result
		require.NoError(t, json.Unmarshal(data, &result))
		assert.True(t, result.Success)
		assert.NotEmpty(t, result.Annotations)
	})

	t.Run("MissingContent", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/annotate", gin.H{"content_type": "pathology"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UnsupportedContentType", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/annotate", gin.H{
			"content":      samplePathologyText,
			"content_type": "surgery",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGenerateQAEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	annotated := annotator.NewEngine(logger).Annotate(samplePathologyText, nil, "pathology")
	annotatedJSON, err := json.Marshal(annotated)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/qa/generate", gin.H{
			"annotated_content": json.RawMessage(annotatedJSON),
			"qa_count":          5,
		})
		assert.Equal(t, http.StatusOK, w.Code)

		resp := decodeResponse(t, w)
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var result qagen.Result
		require.NoError(t, json.Unmarshal(data, &result))
		assert.True(t, result.Success)
		assert.NotEmpty(t, result.QAPairs)
		assert.LessOrEqual(t, len(result.QAPairs), 5)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/qa/generate",
			bytes.NewReader([]byte(`{"annotated_content": "not a json object"}`)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		env.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "JSON")
	})

	t.Run("MissingField", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/qa/generate", gin.H{"qa_count": 5})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPipelineEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("Success", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/pipeline", gin.H{
			"input_content": samplePathologyText,
			"qa_count":      6,
			"content_type":  "pathology",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		resp := decodeResponse(t, w)
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var report pipeline.Report
		require.NoError(t, json.Unmarshal(data, &report))
		assert.True(t, report.Success)
		assert.Len(t, report.Steps, 3)
		assert.NotEmpty(t, report.RunID)

		// 运行记录已持久化，可通过运行查询接口获取
		getReq := httptest.NewRequest(http.MethodGet, "/api/runs/"+report.RunID, nil)
		getW := httptest.NewRecorder()
		env.Router.ServeHTTP(getW, getReq)
		assert.Equal(t, http.StatusOK, getW.Code)
		assert.Contains(t, getW.Body.String(), report.RunID)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/pipeline", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestKBEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	// 准备问答数据集
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	annotated := annotator.NewEngine(logger).Annotate(samplePathologyText, nil, "pathology")
	dataset := qagen.NewGenerator(logger).Generate(annotated, 5)
	require.True(t, dataset.Success)
	require.NotEmpty(t, dataset.QAPairs)

	t.Run("CreateIndex", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/kb", gin.H{
			"action":     "create_index",
			"index_name": "tumor_docs",
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "medical_pathology_kb_tumor_docs")
	})

	t.Run("StoreAndSearch", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/kb", gin.H{
			"action":     "store",
			"index_name": "medical_pathology_kb_api",
			"qa_dataset": gin.H{"qa_pairs": dataset.QAPairs},
		})
		assert.Equal(t, http.StatusOK, w.Code)

		resp := decodeResponse(t, w)
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var report kb.IntegrationReport
		require.NoError(t, json.Unmarshal(data, &report))
		assert.True(t, report.Success)
		assert.Equal(t, len(dataset.QAPairs)*2, report.TotalDocumentsCreated)

		// 搜索刚入库的数据
		sw := postJSON(t, env.Router, "/api/kb", gin.H{
			"action":      "search",
			"index_name":  "medical_pathology_kb_api",
			"query":       "肺癌",
			"search_type": "hybrid",
			"top_k":       5,
		})
		assert.Equal(t, http.StatusOK, sw.Code)

		sresp := decodeResponse(t, sw)
		sdata, err := json.Marshal(sresp.Data)
		require.NoError(t, err)
		var sreport kb.SearchReport
		require.NoError(t, json.Unmarshal(sdata, &sreport))
		assert.True(t, sreport.Success)
		assert.NotEmpty(t, sreport.Results)
	})

	t.Run("ListIndices", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/kb", gin.H{"action": "list_indices"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("DeleteUnrelatedIndex", func(t *testing.T) {
		// 非领域前缀的索引拒绝删除
		w := postJSON(t, env.Router, "/api/kb", gin.H{
			"action":     "delete_index",
			"index_name": "unrelated_index",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		resp := decodeResponse(t, w)
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var result kb.DeleteResult
		require.NoError(t, json.Unmarshal(data, &result))
		assert.False(t, result.Success)
	})

	t.Run("UnknownAction", func(t *testing.T) {
		w := postJSON(t, env.Router, "/api/kb", gin.H{"action": "optimize"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCorpusEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	// 构造multipart上传请求
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "lung_report.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte(samplePathologyText))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/corpus", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var uploaded model.CorpusUploadResponse
	require.NoError(t, json.Unmarshal(data, &uploaded))
	assert.NotEmpty(t, uploaded.FileID)
	assert.Equal(t, "lung_report.txt", uploaded.FileName)

	// 列出语料文件
	listReq := httptest.NewRequest(http.MethodGet, "/api/corpus", nil)
	listW := httptest.NewRecorder()
	env.Router.ServeHTTP(listW, listReq)

	assert.Equal(t, http.StatusOK, listW.Code)
	assert.Contains(t, listW.Body.String(), uploaded.FileID)
}

func TestCorpusUploadRejectsUnsupportedType(t *testing.T) {
	env := setupTestEnv(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "malware.exe")
	require.NoError(t, err)
	_, err = part.Write([]byte("binary"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/corpus", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAsyncPipelineWithoutQueue(t *testing.T) {
	env := setupTestEnv(t)

	// 队列未启用时异步接口返回503
	w := postJSON(t, env.Router, "/api/pipeline/async", gin.H{
		"input_content": samplePathologyText,
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	taskReq := httptest.NewRequest(http.MethodGet, "/api/tasks/some-task", nil)
	taskW := httptest.NewRecorder()
	env.Router.ServeHTTP(taskW, taskReq)
	assert.Equal(t, http.StatusServiceUnavailable, taskW.Code)
}

func TestListRunsEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	// 先执行一次流水线产生运行记录
	w := postJSON(t, env.Router, "/api/pipeline", gin.H{
		"input_content": samplePathologyText,
		"qa_count":      3,
	})
	require.Equal(t, http.StatusOK, w.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/runs?page=1&page_size=10", nil)
	listW := httptest.NewRecorder()
	env.Router.ServeHTTP(listW, listReq)

	require.Equal(t, http.StatusOK, listW.Code)
	resp := decodeResponse(t, listW)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var list model.RunListResponse
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Runs, 1)
	assert.Equal(t, "completed", list.Runs[0].Status)
}
