package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestWrapRetrieval(t *testing.T) {
	assert.Nil(t, WrapRetrieval(nil))

	cause := errors.New("connection refused")
	err := fmt.Errorf("search: %w", WrapRetrieval(cause))

	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUpstreamLLM)
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(err))
	assert.Contains(t, err.Error(), RetrievalErrorMessage)
}

func TestWrapLLM(t *testing.T) {
	err := WrapLLM(errors.New("quota exceeded"))
	assert.ErrorIs(t, err, ErrUpstreamLLM)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, LLMErrorMessage, appErr.Message)
}

func TestWrapRedis(t *testing.T) {
	assert.Nil(t, WrapRedis(nil))
	assert.Equal(t, http.StatusNotFound, StatusOf(WrapRedis(redis.Nil)))
	assert.Equal(t, http.StatusBadGateway, StatusOf(WrapRedis(errors.New("dial tcp"))))
}

func TestStatusOfPlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}
