package domain

import "fmt"

// ValidationError 请求缺少必填字段（HTTP 层映射为 4xx）
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError 创建校验错误
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StorageError 持久化写入失败（HTTP 层映射为 5xx；内部不重试）
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError 包装存储层错误
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
