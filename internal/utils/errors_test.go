package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Code
		http   int
	}{
		{http.StatusNotFound, CodeNotFound, http.StatusNotFound},
		{http.StatusConflict, CodeConflict, http.StatusConflict},
		{http.StatusInternalServerError, CodeServerFault, http.StatusBadGateway},
		{http.StatusBadGateway, CodeServerFault, http.StatusBadGateway},
		{http.StatusBadRequest, CodeInvalidArgument, http.StatusBadRequest},
		{http.StatusTeapot, CodeProtocolMismatch, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := FromStatus("Test.Op", tt.status, http.StatusText(tt.status))
			assert.True(t, IsCode(err, tt.want))
			assert.Equal(t, tt.http, HTTPStatus(err))
		})
	}
}

func TestCodeOf_WrappedAndSentinel(t *testing.T) {
	inner := E(CodeConflict, "Dir.Register", "already exists", nil)
	wrapped := fmt.Errorf("register: %w", inner)

	assert.Equal(t, CodeConflict, CodeOf(wrapped))
	assert.Equal(t, CodeNotFound, CodeOf(ErrNotFound))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestNetworkMapsToUnavailable(t *testing.T) {
	err := Network("Inference.Complete", errors.New("dial tcp: refused"))

	assert.True(t, IsCode(err, CodeNetworkFailure))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(err))
	assert.Equal(t, "upstream unreachable", SafeMessage(err))
}
