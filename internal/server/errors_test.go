package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resume-evaluator/internal/store"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&ErrValidation{Field: "action", Message: "required"}, http.StatusBadRequest},
		{&ErrNotConfigured{Feature: "run history"}, http.StatusServiceUnavailable},
		{&ErrNotFound{Resource: "run"}, http.StatusNotFound},
		{fmt.Errorf("peek: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", &ErrValidation{Field: "id"}), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "validation error: page_url - must be a URL", (&ErrValidation{Field: "page_url", Message: "must be a URL"}).Error())
	assert.Equal(t, "run history is not configured", (&ErrNotConfigured{Feature: "run history"}).Error())
	assert.Equal(t, "run not found", (&ErrNotFound{Resource: "run"}).Error())
}
