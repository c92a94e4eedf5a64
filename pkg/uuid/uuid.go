// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid generates time-ordered identifiers.

Values are UUID version 7, used as JWT IDs and as members of the Redis
failure sets, where creation-time ordering keeps them unique and sortable.
*/
package uuid

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
func New() string {
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}

	return id.String()
}

// Valid reports whether value parses as a version 7 UUID.
func Valid(value string) bool {
	id, err := uuid.Parse(value)
	return err == nil && id.Version() == 7
}
