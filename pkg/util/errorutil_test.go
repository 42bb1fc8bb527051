package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_PassesThroughDomainErrors(t *testing.T) {
	wrapped := fmt.Errorf("process: %w", NewAlreadyProcessed("t-1"))

	de := ToDomainError(wrapped)
	require.NotNil(t, de)
	assert.Equal(t, CodeAlreadyProcessed, de.Code)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
	assert.Equal(t, "t-1", de.Details["ticket_id"])
}

func TestToDomainError_MapsNoRowsToNotFound(t *testing.T) {
	de := ToDomainError(sql.ErrNoRows)
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
}

func TestToDomainError_UnknownBecomesInternal(t *testing.T) {
	de := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestStoreUnavailable_HidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:5432: connection refused")
	err := NewStoreUnavailable(cause)

	de := ToDomainError(err)
	assert.Equal(t, "ticket store unavailable", de.Message)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.ErrorIs(t, err, cause)
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewForbidden("nope"), CodeForbidden))
	assert.True(t, HasCode(fmt.Errorf("wrap: %w", NewNotFound("ticket", nil)), CodeNotFound))
	assert.False(t, HasCode(NewForbidden("nope"), CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}
