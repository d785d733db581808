package httpapi

import (
	"errors"
	"net/http"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"

	"go.uber.org/zap"
)

// errorStatus 错误类别到 HTTP 状态码
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrDeletionBlocked),
		errors.Is(err, domain.ErrNoUnitsAvailable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorDetail 类型化错误的详情，作为 result 返回给调用方
func errorDetail(err error) any {
	var (
		verr *domain.ValidationError
		cerr *domain.ConflictError
		nerr *domain.NoUnitsAvailableError
		derr *domain.DeletionBlockedError
		ferr *domain.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return verr
	case errors.As(err, &cerr):
		return cerr
	case errors.As(err, &nerr):
		return nerr
	case errors.As(err, &derr):
		return derr
	case errors.As(err, &ferr):
		return ferr
	default:
		return nil
	}
}

// writeError 业务结果记 Info，系统故障记 Error 且不向调用方暴露内部错误
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status := errorStatus(err)
	res := Result[any]{Code: ResultError, Type: ResultTypeError, Message: err.Error(), Result: errorDetail(err)}

	switch {
	case errors.Is(err, domain.ErrNoUnitsAvailable):
		res.Type = ResultTypeWarning
	case status >= http.StatusInternalServerError:
		logger.Error(op+" failed", zap.Error(err))
		if status == http.StatusServiceUnavailable {
			res.Message = "resource busy, retry later"
		} else {
			res.Message = "internal error"
		}
	default:
		logger.Info(op+" rejected", zap.Error(err))
	}
	writeJSON(w, status, res)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, Fail("method not allowed"))
}
