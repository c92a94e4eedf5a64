// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package requestutil_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
	"github.com/taibuivan/apisegura/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/apisegura/internal/platform/request"
	"github.com/taibuivan/apisegura/internal/platform/sec"
	"github.com/taibuivan/apisegura/internal/platform/validate"
)

type loginBody struct {
	Username string `json:"username"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"username":"alice"}`, false},
		{"unknown field", `{"username":"alice","admin":true}`, true},
		{"malformed", `{"username":`, true},
		{"empty", ``, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))

			var target loginBody
			err := requestutil.DecodeJSON(request, &target)

			if tc.wantErr {
				assert.ErrorIs(t, err, validate.ErrInvalidJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", target.Username)
		})
	}
}

func TestDecodeOptionalJSON(t *testing.T) {
	var target loginBody

	empty := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	assert.NoError(t, requestutil.DecodeOptionalJSON(empty, &target))
	assert.Empty(t, target.Username)

	filled := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"bob"}`))
	require.NoError(t, requestutil.DecodeOptionalJSON(filled, &target))
	assert.Equal(t, "bob", target.Username)

	broken := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.ErrorIs(t, requestutil.DecodeOptionalJSON(broken, &target), validate.ErrInvalidJSON)
}

func TestInt64Param(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			routeContext := chi.NewRouteContext()
			routeContext.URLParams.Add("id", tc.raw)
			request := httptest.NewRequest(http.MethodGet, "/users/"+tc.raw, nil)
			request = request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, routeContext))

			got, err := requestutil.Int64Param(request, "id")

			if tc.wantErr {
				require.ErrorIs(t, err, apperr.ErrValidation)
				assert.Equal(t, "id", apperr.As(err).Details[0].Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRequiredIdentity(t *testing.T) {
	anonymous := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, requestutil.Identity(anonymous))

	_, err := requestutil.RequiredIdentity(anonymous)
	assert.ErrorIs(t, err, apperr.ErrTokenMissing)

	identity := &sec.Identity{ID: 7, Username: "alice", Role: sec.RoleUser}
	authenticated := anonymous.WithContext(ctxutil.WithIdentity(anonymous.Context(), identity))

	got, err := requestutil.RequiredIdentity(authenticated)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}
