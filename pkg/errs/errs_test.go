package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_WrapKeepsIdentity(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrDataSourceUnavailable.Wrap(cause)

	assert.True(t, errors.Is(err, ErrDataSourceUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrModelCallFailed))
	assert.Equal(t, "data source unavailable: connection refused", err.Error())
	assert.Equal(t, "data source unavailable", ErrDataSourceUnavailable.Error())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(ErrServiceNotReady))
	assert.Equal(t, http.StatusNotFound, StatusOf(fmt.Errorf("analytics: %w", ErrNoBookingData)))
	assert.Equal(t, http.StatusBadRequest, StatusOf(ErrQuestionEmpty.Wrap(errors.New("blank"))))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}
