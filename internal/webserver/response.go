package webserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ummitifli/storefront/internal/apperr"
)

// ErrorBody is the error part of the envelope.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Response is the JSON envelope of every API reply.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PageMeta   `json:"meta,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func Paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    &PageMeta{Total: total, Page: page, PageSize: pageSize},
	})
}

func Fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, Response{Error: &ErrorBody{Code: code, Message: message, Details: details}})
}

// FailErr answers with the status and code of an apperr kind.
func FailErr(c echo.Context, err error) error {
	var details interface{}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		details = ve.Fields
	}
	return Fail(c, apperr.HTTPStatus(err), apperr.Code(err), err.Error(), details)
}
