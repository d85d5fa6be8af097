package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/go-playground/validator/v10"
)

// BindErrorMessage 将请求绑定错误转换为中文提示
// 非校验类错误（如JSON语法错误）返回fallback
func BindErrorMessage(err error, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fallback
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("字段%s为必填项", fe.Field())
	case "min":
		return fmt.Sprintf("字段%s不能小于%s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("字段%s不能大于%s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("字段%s校验失败", fe.Field())
	}
}

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// CleanRequest 文本清洗请求
// text_content、file_path、batch_file_paths三者必须恰好提供一个
type CleanRequest struct {
	TextContent    string   `json:"text_content" binding:"omitempty"`
	FilePath       string   `json:"file_path" binding:"omitempty"`
	BatchFilePaths []string `json:"batch_file_paths" binding:"omitempty"`
}

// InputCount 统计提供的输入数量
func (r *CleanRequest) InputCount() int {
	count := 0
	if r.TextContent != "" {
		count++
	}
	if r.FilePath != "" {
		count++
	}
	if len(r.BatchFilePaths) > 0 {
		count++
	}
	return count
}

// AnnotateRequest 医疗文本标注请求
type AnnotateRequest struct {
	Content     string `json:"content" binding:"required"`       // 待标注文本
	ContentType string `json:"content_type" binding:"omitempty"` // 内容类型
}

// GenerateQARequest 问答对生成请求
// annotated_content为标注结果的JSON，格式错误与字段缺失是不同的错误
type GenerateQARequest struct {
	AnnotatedContent json.RawMessage `json:"annotated_content" binding:"required"`
	QACount          int             `json:"qa_count" binding:"omitempty,min=1"`
}

// PipelineRequest 流水线处理请求
type PipelineRequest struct {
	InputContent  string `json:"input_content" binding:"omitempty"`
	InputFilePath string `json:"input_file_path" binding:"omitempty"`
	QACount       int    `json:"qa_count" binding:"omitempty,min=1"`
	ContentType   string `json:"content_type" binding:"omitempty"`
	IndexName     string `json:"index_name" binding:"omitempty"` // 非空时在流水线末尾入库
}

// KBRequest 知识库操作请求
type KBRequest struct {
	Action     string          `json:"action" binding:"required"` // 操作类型
	IndexName  string          `json:"index_name" binding:"omitempty"`
	QADataset  json.RawMessage `json:"qa_dataset" binding:"omitempty"` // 待入库的问答数据集JSON
	Query      string          `json:"query" binding:"omitempty"`
	SearchType string          `json:"search_type" binding:"omitempty"` // accurate/semantic/hybrid
	TopK       int             `json:"top_k" binding:"omitempty,min=1"`
}

// QADatasetPayload 入库请求中的问答数据集结构
type QADatasetPayload struct {
	QAPairs json.RawMessage `json:"qa_pairs"`
}

// TaskStatusRequest 任务状态查询请求
type TaskStatusRequest struct {
	ID string `uri:"id" binding:"required"` // 任务ID
}

// RunStatusRequest 流水线运行查询请求
type RunStatusRequest struct {
	ID string `uri:"id" binding:"required"` // 运行ID
}

// RunListRequest 流水线运行列表请求
type RunListRequest struct {
	PaginationRequest
	Status string `form:"status" json:"status" binding:"omitempty"` // 状态过滤
}

// CorpusUploadRequest 语料文件上传请求
type CorpusUploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // 文件对象
}
