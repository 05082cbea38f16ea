package httpapi

// Result 与设备固件及 manager-web 的约定一致
// - code: 0 成功，非 0 失败
// - msg: 提示信息
// - data: 业务数据
type Result[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

const (
	ResultSuccess = 0
	ResultError   = -1
)

func Ok[T any](data T) Result[T] {
	return Result[T]{Code: ResultSuccess, Msg: "success", Data: data}
}

func Fail(msg string) Result[any] {
	return Result[any]{Code: ResultError, Msg: msg}
}
