package util

import "fmt"

// 错误码，稳定对外暴露，controller 层据此映射 HTTP 状态码
const (
	CodeNotFound     = "not_found"
	CodeForbidden    = "forbidden"
	CodeInvalidState = "invalid_state"
	CodeConflict     = "conflict"
)

// ServiceError 引擎对外的同步错误，带稳定错误码
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NotFoundError(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message}
}

func ForbiddenError(message string) *ServiceError {
	return &ServiceError{Code: CodeForbidden, Message: message}
}

func InvalidStateError(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidState, Message: message}
}

func ConflictError(message string) *ServiceError {
	return &ServiceError{Code: CodeConflict, Message: message}
}

var (
	ErrSimulationNotFound = NotFoundError("simulation not found")
	ErrAssignmentNotFound = NotFoundError("assignment not found")
	ErrResultNotFound     = NotFoundError("result not found")
	ErrSubmissionNotFound = NotFoundError("open answer submission not found")
	ErrUserNotFound       = NotFoundError("用户不存在")
	ErrEmailRegistered    = ConflictError("该邮箱已被注册")

	ErrNotOwner          = ForbiddenError("result does not belong to caller")
	ErrAssignmentClosed  = ForbiddenError("assignment is closed")
	ErrSelfCorrectionOff = ForbiddenError("self correction is not enabled for this simulation")
	ErrPermissionDenied  = ForbiddenError("permission denied")

	ErrNotYetAvailable   = InvalidStateError("simulation not yet available")
	ErrNoLongerAvailable = InvalidStateError("simulation no longer available")
	ErrAlreadySubmitted  = InvalidStateError("attempt already submitted")
	ErrAttemptLimit      = InvalidStateError("attempt limit reached")
	ErrAttemptNotActive  = InvalidStateError("attempt is not in progress")
	ErrDuplicateAttempt  = ConflictError("another in-progress attempt exists")
)
