// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
	"github.com/taibuivan/apisegura/internal/platform/respond"
	"github.com/taibuivan/apisegura/pkg/pagination"
)

func TestOK(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.OK(recorder, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, recorder.Body.String())
}

func TestCreatedAndMessage(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.Created(recorder, []int{1})
	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.JSONEq(t, `{"data":[1]}`, recorder.Body.String())

	recorder = httptest.NewRecorder()
	respond.Message(recorder, "done")
	assert.JSONEq(t, `{"data":{"message":"done"}}`, recorder.Body.String())
}

func TestPaginated(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.Paginated(recorder, []string{"a"}, pagination.NewMeta(pagination.Params{Page: 1, Limit: 1}, 3))

	assert.JSONEq(t,
		`{"data":["a"],"meta":{"page":1,"limit":1,"total":3,"total_pages":3,"has_next":true}}`,
		recorder.Body.String())
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantHeader map[string]string
	}{
		{
			name:       "validation with details",
			err:        apperr.ValidationError("bad input", apperr.FieldError{Field: "email", Message: "invalid"}),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeValidation,
		},
		{
			name:       "unauthorized advertises bearer",
			err:        apperr.TokenMissing(),
			wantStatus: http.StatusUnauthorized,
			wantCode:   apperr.CodeTokenMissing,
			wantHeader: map[string]string{"WWW-Authenticate": `Bearer realm="api-segura"`},
		},
		{
			name:       "throttled carries retry after",
			err:        apperr.TooManyAttempts(90 * time.Second),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   apperr.CodeTooManyAttempts,
			wantHeader: map[string]string{"Retry-After": "90"},
		},
		{
			name:       "wrapped app error",
			err:        errors.Join(errors.New("context"), apperr.NotFound("User")),
			wantStatus: http.StatusNotFound,
			wantCode:   apperr.CodeNotFound,
		},
		{
			name:       "plain error is hidden",
			err:        errors.New("pq: relation users does not exist"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperr.CodeInternal,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, "/", nil)

			respond.Error(recorder, request, tc.err)

			assert.Equal(t, tc.wantStatus, recorder.Code)
			for key, value := range tc.wantHeader {
				assert.Equal(t, value, recorder.Header().Get(key))
			}

			var body respond.ErrorEnvelope
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.Code)
			assert.NotContains(t, body.Error, "pq:")
		})
	}
}
