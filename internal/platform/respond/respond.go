// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond writes the JSON envelopes returned by every auth endpoint.
//
// # Envelopes
//
// Successful responses wrap their payload as {"data": ...}, optionally with a
// "meta" block for paginated lists. Failures are rendered from [apperr.AppError]
// as {"error", "code", "details"}; anything else collapses to INTERNAL_ERROR so
// that internal messages never leave the process.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
	"github.com/taibuivan/apisegura/internal/platform/constants"
	"github.com/taibuivan/apisegura/internal/platform/ctxutil"
	"github.com/taibuivan/apisegura/pkg/pagination"
)

// bearerRealm is advertised on every 401 so clients know which scheme to retry with.
const bearerRealm = `Bearer realm="api-segura"`

// SuccessEnvelope is the JSON envelope for successful single-resource responses.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// PaginatedEnvelope is the JSON envelope for paginated list responses.
type PaginatedEnvelope struct {
	Data any             `json:"data"`
	Meta pagination.Meta `json:"meta"`
}

// ErrorEnvelope is the JSON envelope for error responses.
type ErrorEnvelope struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// MessageBody is the payload of [Message].
type MessageBody struct {
	Message string `json:"message"`
}

// # Success

// JSON writes payload with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 with data in the success envelope.
func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Data: data})
}

// Created writes a 201 with data in the success envelope.
func Created(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusCreated, SuccessEnvelope{Data: data})
}

// Paginated writes a 200 with a page of data and its metadata block.
func Paginated(writer http.ResponseWriter, data any, metadata pagination.Meta) {
	JSON(writer, http.StatusOK, PaginatedEnvelope{Data: data, Meta: metadata})
}

// Message writes a 200 carrying only a human-readable confirmation.
func Message(writer http.ResponseWriter, message string) {
	OK(writer, MessageBody{Message: message})
}

// # Failure

/*
Error renders err as an error envelope.

Description: Non-[apperr.AppError] values are logged in full and replaced by a
generic internal error. Server-side failures (5xx) are always logged with their
cause. 401 responses advertise the bearer scheme and 429 responses carry
Retry-After when the error knows how long the client should wait.

Parameters:
  - writer: http.ResponseWriter
  - request: *http.Request (source of the request logger and ID)
  - err: error
*/
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)

	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		logger.ErrorContext(ctx, "unhandled_error_swallowed",
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
		)
		appError = apperr.Internal(err)
	}

	switch {
	case appError.HTTPStatus >= http.StatusInternalServerError:
		logger.ErrorContext(ctx, "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
			slog.Any("cause", appError.Cause),
		)
	case appError.HTTPStatus == http.StatusUnauthorized:
		writer.Header().Set(constants.HeaderAuthenticate, bearerRealm)
	}

	if appError.RetryAfter > 0 {
		writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(int(appError.RetryAfter.Seconds())))
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Error:   appError.Message,
		Code:    appError.Code,
		Details: appError.Details,
	})
}
