package model

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// CorpusUploadResponse 语料文件上传响应
type CorpusUploadResponse struct {
	FileID      string `json:"file_id"`      // 文件ID
	FileName    string `json:"filename"`     // 文件名
	Size        int64  `json:"size"`         // 文件大小(字节)
	ContentType string `json:"content_type"` // 内容类型
	Path        string `json:"path"`         // 存储路径
}

// CorpusFileInfo 语料文件信息
type CorpusFileInfo struct {
	FileID      string `json:"file_id"`      // 文件ID
	FileName    string `json:"filename"`     // 文件名
	Size        int64  `json:"size"`         // 文件大小(字节)
	ContentType string `json:"content_type"` // 内容类型
	Path        string `json:"path"`         // 存储路径
}

// CorpusListResponse 语料文件列表响应
type CorpusListResponse struct {
	Total int              `json:"total"` // 总数量
	Files []CorpusFileInfo `json:"files"` // 文件列表
}

// AsyncPipelineResponse 异步流水线提交响应
type AsyncPipelineResponse struct {
	TaskID string `json:"task_id"` // 任务ID
	RunID  string `json:"run_id"`  // 运行ID
	Status string `json:"status"`  // 初始任务状态
}

// RunInfo 流水线运行信息
type RunInfo struct {
	RunID        string  `json:"run_id"`                 // 运行ID
	Source       string  `json:"source"`                 // 输入来源
	ContentType  string  `json:"content_type"`           // 内容类型
	Status       string  `json:"status"`                 // 运行状态
	CurrentStage string  `json:"current_stage"`          // 当前阶段
	QACount      int     `json:"qa_count"`               // 生成的问答对数量
	QualityScore float64 `json:"quality_score"`          // 清洗质量评分
	OverallScore float64 `json:"overall_score"`          // 数据集整体质量
	Error        string  `json:"error,omitempty"`        // 错误信息
	CreatedAt    string  `json:"created_at"`             // 创建时间
	CompletedAt  string  `json:"completed_at,omitempty"` // 完成时间
}

// RunListResponse 流水线运行列表响应
type RunListResponse struct {
	Total    int       `json:"total"`     // 总记录数
	Page     int       `json:"page"`      // 当前页码
	PageSize int       `json:"page_size"` // 每页大小
	Runs     []RunInfo `json:"runs"`      // 运行列表
}

// PaginationResponse 分页响应信息
type PaginationResponse struct {
	Total    int `json:"total"`     // 总记录数
	Page     int `json:"page"`      // 当前页码
	PageSize int `json:"page_size"` // 每页大小
}
