package web

import (
	"errors"
	"net/http"

	"github.com/KNICEX/quantflow/internal/repo"
	"github.com/KNICEX/quantflow/internal/service/strategy"
	"github.com/gin-gonic/gin"
)

// 业务错误码, 0 表示成功
const (
	CodeOK         = 0
	CodeBadRequest = 40000
	CodeNotFound   = 40400
	CodeDisabled   = 50300
	CodeInternal   = 50000
)

type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

func decodeErr(err error) (httpStatus int, code int) {
	switch {
	case err == nil:
		return http.StatusOK, CodeOK
	case errors.Is(err, repo.ErrStrategyNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, strategy.ErrInvalidArgument), errors.Is(err, strategy.ErrInvalidStatus):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, strategy.ErrGeneratorDisabled):
		return http.StatusServiceUnavailable, CodeDisabled
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// JSON 写统一格式的响应, err 为 nil 时 data 作为结果返回
func JSON(c *gin.Context, err error, data any) {
	status, code := decodeErr(err)
	msg := "ok"
	if err != nil {
		msg = err.Error()
		data = nil
		_ = c.Error(err)
	}
	c.JSON(status, Response{Code: code, Msg: msg, Data: data})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, Response{Code: CodeBadRequest, Msg: err.Error()})
}
