// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertToPgx5DSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/auth", "pgx5://u:p@localhost:5432/auth"},
		{"postgresql://u:p@localhost/auth?sslmode=disable", "pgx5://u:p@localhost/auth?sslmode=disable"},
		{"pgx5://u:p@localhost/auth", "pgx5://u:p@localhost/auth"},
		{"host=localhost dbname=auth", "host=localhost dbname=auth"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, convertToPgx5DSN(tt.in))
		})
	}
}
