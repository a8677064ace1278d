package errors

import (
	"errors"
	"fmt"
)

// ── 错误分类（哨兵值，配合 errors.Is 使用） ──

var (
	// ErrValidation 用户输入不满足前置条件
	ErrValidation = errors.New("输入校验失败")
	// ErrPrecondition 操作需要一个活动批次
	ErrPrecondition = errors.New("当前没有活动批次")
	// ErrRemoteUnavailable 远端不可用或远端操作失败
	ErrRemoteUnavailable = errors.New("远端存储不可用")
	// ErrCorruptLocalState 本地快照无法解析
	ErrCorruptLocalState = errors.New("本地快照已损坏")
	// ErrReportAssetUnavailable 报表所需资源无法加载
	ErrReportAssetUnavailable = errors.New("报表资源不可用")
)

// ValidationError 字段级校验错误，Message 直接面向用户
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation 创建校验错误
func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// PreconditionError 缺少活动批次等前置状态
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// RemoteUnavailableError 远端操作失败，Op 为操作名
type RemoteUnavailableError struct {
	Op  string
	Err error
}

func (e *RemoteUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("远端操作 %s 失败", e.Op)
	}
	return fmt.Sprintf("远端操作 %s 失败: %v", e.Op, e.Err)
}

// Is 同时匹配 ErrRemoteUnavailable 与底层错误
func (e *RemoteUnavailableError) Is(target error) bool { return target == ErrRemoteUnavailable }

func (e *RemoteUnavailableError) Unwrap() error { return e.Err }

// Remote 包装远端错误；err 为 nil 时返回 nil
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteUnavailableError{Op: op, Err: err}
}

// CorruptLocalStateError 本地槽位内容无法反序列化
type CorruptLocalStateError struct {
	Slot string
	Err  error
}

func (e *CorruptLocalStateError) Error() string {
	return fmt.Sprintf("本地槽位 %s 已损坏: %v", e.Slot, e.Err)
}

func (e *CorruptLocalStateError) Is(target error) bool { return target == ErrCorruptLocalState }

func (e *CorruptLocalStateError) Unwrap() error { return e.Err }

// ReportAssetUnavailableError 报表资源（logo、图表）加载失败
type ReportAssetUnavailableError struct {
	Asset string
	Err   error
}

func (e *ReportAssetUnavailableError) Error() string {
	return fmt.Sprintf("报表资源 %s 不可用: %v", e.Asset, e.Err)
}

func (e *ReportAssetUnavailableError) Is(target error) bool {
	return target == ErrReportAssetUnavailable
}

func (e *ReportAssetUnavailableError) Unwrap() error { return e.Err }
