package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", NotFound("proposal not found"), http.StatusNotFound, "NOT_FOUND"},
		{"forbidden", Forbidden("nope"), http.StatusForbidden, "FORBIDDEN"},
		{"invalid state", InvalidState("closed"), http.StatusBadRequest, "INVALID_STATE"},
		{"invalid operation", InvalidOperation("own project"), http.StatusBadRequest, "INVALID_OPERATION"},
		{"conflict", Conflict("duplicate"), http.StatusConflict, "CONFLICT"},
		{"unauthorized", Unauthorized("who"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"validation", InvalidInput("bad"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"dependency", Dependency("proposal.create", errors.New("conn reset")), http.StatusInternalServerError, "DEPENDENCY_FAILURE"},
		{"bare sentinel", fmt.Errorf("wrapped: %w", ErrConflict), http.StatusConflict, "CONFLICT"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, MapErrorToStatus(tc.err))
			assert.Equal(t, tc.code, Code(tc.err))
		})
	}
}

func TestDependencyHidesCause(t *testing.T) {
	cause := errors.New("pq: password authentication failed")
	err := Dependency("project.find", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrDependency)
	assert.Equal(t, "internal server error", err.Error())
	assert.Equal(t, "internal server error", PublicMessage(err))
}

func TestPublicMessageKeepsUserSafeText(t *testing.T) {
	assert.Equal(t, "project is not accepting proposals", PublicMessage(InvalidState("project is not accepting proposals")))
}
