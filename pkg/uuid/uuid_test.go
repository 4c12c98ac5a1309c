// Copyright (c) 2026 Blood Bridge. All rights reserved.

package uuid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bloodbridge/portal/pkg/uuid"
)

func TestGenerators(t *testing.T) {
	session := uuid.NewSessionID()
	request := uuid.NewRequestID()

	assert.True(t, uuid.Valid(session))
	assert.True(t, uuid.Valid(request))
	assert.NotEqual(t, session, uuid.NewSessionID())
	assert.Equal(t, byte('7'), request[14])
	assert.Equal(t, byte('4'), session[14])
}

func TestValid(t *testing.T) {
	assert.False(t, uuid.Valid(""))
	assert.False(t, uuid.Valid("not-a-session"))
	assert.False(t, uuid.Valid("../../etc/passwd"))
}
