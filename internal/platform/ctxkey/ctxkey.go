// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey defines the request-scoped context keys shared by middleware
// and handlers. Read and write them through ctxutil rather than directly.
package ctxkey

// key is unexported so no other package can mint a colliding value.
type key uint8

const (
	// KeyRequestID holds the X-Request-ID correlation value (string).
	KeyRequestID key = iota + 1

	// KeyIdentity holds the authenticated *sec.Identity.
	KeyIdentity

	// KeyLogger holds the per-request *slog.Logger.
	KeyLogger

	// KeyClientIP holds the resolved client address (string).
	KeyClientIP
)
