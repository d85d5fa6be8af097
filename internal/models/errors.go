package models

import "errors"

var (
	// ErrInvalidInput 输入参数无效错误
	// 包括缺失参数、参数互斥冲突、JSON格式错误等
	ErrInvalidInput = errors.New("invalid input")

	// ErrResourceNotFound 引用的文件或索引不存在错误
	ErrResourceNotFound = errors.New("resource not found")

	// ErrUpstreamFailure 上游流水线阶段失败错误
	// 当前序阶段返回success=false时，后续阶段以此错误拒绝处理
	ErrUpstreamFailure = errors.New("upstream stage failed")

	// ErrExternalService 外部搜索引擎连接或批量操作失败错误
	ErrExternalService = errors.New("external service error")
)
