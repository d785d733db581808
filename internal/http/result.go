package httpapi

// Result 统一响应结构
// - code: 2000 成功，-1 失败
// - type: 'success' | 'error' | 'warning'（warning 表示库存不足等正常业务结果）
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

const (
	ResultTypeSuccess = "success"
	ResultTypeError   = "error"
	ResultTypeWarning = "warning"
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: ResultTypeSuccess, Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: ResultTypeError, Message: message, Result: nil}
}
