package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("x"), http.StatusBadRequest},
		{BadRequest("x"), http.StatusBadRequest},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{Conflict("x"), http.StatusConflict},
		{StoreUnavailable(context.DeadlineExceeded), http.StatusInternalServerError},
		{New(CodeInternal, "x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", Forbidden("x")), http.StatusForbidden},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("svc: %w", NotFound("Post not found."))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, NotFound("Post not found.")))
	assert.False(t, errors.Is(err, NotFound("User not found.")))
	assert.False(t, errors.Is(err, ErrConflict))

	stored := StoreUnavailable(context.Canceled)
	assert.True(t, errors.Is(stored, ErrStoreUnavailable))
	assert.True(t, errors.Is(stored, context.Canceled))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Invalid credentials.", PublicMessage(Unauthorized("Invalid credentials.")))
	assert.Equal(t, "An internal server error occurred.", PublicMessage(errors.New("sql: database is locked")))
	assert.Equal(t, "An internal server error occurred.", PublicMessage(Wrap(errors.New("boom"), CodeInternal, "boom")))
	assert.Equal(t, "An internal server error occurred.", PublicMessage(ErrNotFound))

	msg := PublicMessage(StoreUnavailable(errors.New("dial tcp: refused")))
	assert.NotContains(t, msg, "dial")
}
