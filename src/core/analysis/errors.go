package analysis

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType 返回给调用方的错误类别
type ErrorType string

const (
	ErrorNoImage         ErrorType = "NO_IMAGE"
	ErrorInvalidFormat   ErrorType = "INVALID_FORMAT"
	ErrorNotCar          ErrorType = "NOT_CAR"
	ErrorInvalidResponse ErrorType = "INVALID_RESPONSE"
	ErrorAnalysisFailed  ErrorType = "ANALYSIS_FAILED"
)

// 固定的错误提示
const (
	MessageNoImage         = "No image provided"
	MessageInvalidFormat   = "Invalid file format. Please upload a PNG or JPEG image"
	MessageNotCar          = "The image does not appear to be a car"
	MessageInvalidResponse = "Failed to parse the analysis result"
)

// Status 错误类别对应的HTTP状态码
func (t ErrorType) Status() int {
	switch t {
	case ErrorNoImage, ErrorInvalidFormat, ErrorNotCar:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Error     string    `json:"error"`
	ErrorType ErrorType `json:"errorType"`
}

// Failure 某个阶段失败的结果
type Failure struct {
	Type    ErrorType
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Type, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Type, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Response 转换为对外的错误响应
func (f *Failure) Response() ErrorResponse {
	return ErrorResponse{Error: f.Message, ErrorType: f.Type}
}

// NewFailure 创建失败结果
func NewFailure(t ErrorType, message string, err error) *Failure {
	return &Failure{Type: t, Message: message, Err: err}
}

// AsFailure 将任意错误归类为 Failure，未归类的错误视为 ANALYSIS_FAILED 并保留原始信息
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return NewFailure(ErrorAnalysisFailed, err.Error(), err)
}
