package errs

// 业务错误码：1xxx 客户端输入，2xxx 鉴权，5xxx 服务端
const (
	CodeMalformedInput    = 1001
	CodeRecipientNotFound = 1002
	CodeSeenNotUpdated    = 1003
	CodeIDTaken           = 1004

	CodeTokenExpired = 2001
	CodeUnauthorized = 2002

	CodeStoreFailure = 5001
)

var (
	ErrMalformedInput    = NewCodeError(CodeMalformedInput, "missing or malformed input")
	ErrRecipientNotFound = NewCodeError(CodeRecipientNotFound, "recipient not found")
	// mark-seen 返回 0 行：不存在与无权限合并为同一条，不暴露消息是否存在
	ErrSeenNotUpdated = NewCodeError(CodeSeenNotUpdated, "no messages updated or not authorized")
	ErrIDTaken        = NewCodeError(CodeIDTaken, "sachat id already taken")

	ErrTokenExpired = NewCodeError(CodeTokenExpired, "token invalid or expired")
	ErrUnauthorized = NewCodeError(CodeUnauthorized, "unauthorized")

	ErrStoreFailure = NewCodeError(CodeStoreFailure, "transient store failure")
)
