package response

import (
	"net/http"

	"tdr-review/types"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Code int    `json:"code"` // 0 ok, -1 failed
	Kind string `json:"kind,omitempty"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code: 0,
		Msg:  "success",
		Data: data,
	})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Code: 0,
		Msg:  "created",
		Data: data,
	})
}

func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{
		Code: -1,
		Msg:  msg,
	})
}

// Error writes err with the HTTP status of its kind. Errors without a kind are 500.
func Error(c *gin.Context, err error) {
	kind := types.KindOf(err)
	c.JSON(Status(kind), Response{
		Code: -1,
		Kind: string(kind),
		Msg:  err.Error(),
	})
}

// Status maps an error kind onto an HTTP status.
func Status(kind types.ErrorKind) int {
	switch kind {
	case types.KindInvalidInput, types.KindInvalidDocumentReference, types.KindInvalidIdentifiers:
		return http.StatusBadRequest
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindJobTerminalFailure, types.KindNoAssistantResponse, types.KindEmptyResponse, types.KindMalformedExtraction:
		return http.StatusUnprocessableEntity
	case types.KindJobTimeout:
		return http.StatusGatewayTimeout
	case types.KindEngineFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

