package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/nexus/internal/inference"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg   string
	param string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(param, msg string) error {
	return invalidRequestError{msg: msg, param: param}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, newInvalidRequest("", "malformed request body: "+err.Error())
	}
	return out, nil
}

// errorBody maps a request or configuration error to its wire form.
func errorBody(err error) (int, ErrorBody) {
	var ce *inference.ConfigError
	if errors.As(err, &ce) {
		return http.StatusBadRequest, ErrorBody{Message: ce.Reason, Type: "configuration_error", Param: ce.Field}
	}
	var ir invalidRequestError
	if errors.As(err, &ir) {
		return http.StatusBadRequest, ErrorBody{Message: ir.msg, Type: "invalid_request_error", Param: ir.param}
	}
	return http.StatusInternalServerError, ErrorBody{Message: err.Error(), Type: "server_error"}
}

func writeErr(c *echo.Context, err error) error {
	status, body := errorBody(err)
	return writeError(c, status, body)
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, ErrorBody{Message: msg, Type: "not_found_error"})
}

func writeError(c *echo.Context, status int, body ErrorBody) error {
	return c.JSON(status, map[string]any{"error": body})
}
