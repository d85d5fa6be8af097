package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/med-kb-engine/api/middleware"
	"github.com/fyerfyer/med-kb-engine/api/model"
	"github.com/fyerfyer/med-kb-engine/pkg/storage"
)

// CorpusHandler 处理语料文件相关的API请求
// 上传的文件可作为批量清洗和流水线的输入源
type CorpusHandler struct {
	fileStorage storage.Storage // 语料存储服务
	logger      *logrus.Logger  // 日志记录器
}

// NewCorpusHandler 创建语料处理器
func NewCorpusHandler(fileStorage storage.Storage) *CorpusHandler {
	return &CorpusHandler{
		fileStorage: fileStorage,
		logger:      middleware.GetLogger(),
	}
}

// Upload 处理语料文件上传请求
// POST /api/corpus
func (h *CorpusHandler) Upload(c *gin.Context) {
	var req model.CorpusUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"未提供文件",
		))
		return
	}

	filename := req.File.Filename
	if !storage.SupportedCorpusType(filename) {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"不支持的文件类型，仅支持 .txt, .md, .markdown, .pdf",
		))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		middleware.HandleError(c, middleware.NewCorpusError("无法打开上传的文件", err.Error()))
		return
	}
	defer file.Close()

	info, err := h.fileStorage.Save(file, filename)
	if err != nil {
		middleware.HandleError(c, middleware.NewCorpusError("保存文件失败", err.Error()))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"file_id":  info.ID,
		"filename": filename,
		"size":     info.Size,
	}).Info("Corpus file uploaded")

	c.JSON(http.StatusOK, model.NewSuccessResponse(&model.CorpusUploadResponse{
		FileID:      info.ID,
		FileName:    info.Name,
		Size:        info.Size,
		ContentType: info.ContentType,
		Path:        info.Path,
	}))
}

// List 列出已上传的语料文件
// GET /api/corpus
func (h *CorpusHandler) List(c *gin.Context) {
	files, err := h.fileStorage.List()
	if err != nil {
		middleware.HandleError(c, middleware.NewCorpusError("获取文件列表失败", err.Error()))
		return
	}

	infos := make([]model.CorpusFileInfo, 0, len(files))
	for _, f := range files {
		infos = append(infos, model.CorpusFileInfo{
			FileID:      f.ID,
			FileName:    f.Name,
			Size:        f.Size,
			ContentType: f.ContentType,
			Path:        f.Path,
		})
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(&model.CorpusListResponse{
		Total: len(infos),
		Files: infos,
	}))
}
