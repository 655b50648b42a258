package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Invalid("x"), http.StatusBadRequest},
		{InvalidRange("x"), http.StatusBadRequest},
		{SelfRental("x"), http.StatusBadRequest},
		{OwnerMismatch("x"), http.StatusBadRequest},
		{Unauthenticated("x"), http.StatusUnauthorized},
		{New(CodeExpiredToken, "x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{AlreadyRented("x"), http.StatusConflict},
		{AlreadyCancelled("x"), http.StatusConflict},
		{Internal("x"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("order")), http.StatusNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("reserve: %w", AlreadyRented("product 3 is rented"))
	assert.ErrorIs(t, err, AlreadyRented(""))
	assert.NotErrorIs(t, err, AlreadyCancelled(""))
	assert.Equal(t, CodeAlreadyRented, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
