package service_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/reelmark/internal/service"
)

func TestWrap(t *testing.T) {
	base := errors.New("connection refused")
	err := service.Wrap(service.ErrTransient, "trending.rank", base)

	assert.ErrorIs(t, err, service.ErrTransient)
	assert.ErrorIs(t, err, base)
	assert.NotErrorIs(t, err, service.ErrInvalid)
	for _, fragment := range []string{"trending.rank", "store unavailable", "connection refused"} {
		assert.True(t, strings.Contains(err.Error(), fragment), "missing %q in %q", fragment, err.Error())
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "nil", err: nil, expected: nil},
		{name: "plain error", err: errors.New("x"), expected: nil},
		{name: "unauthenticated", err: service.Wrap(service.ErrUnauthenticated, "bookmark.save", nil), expected: service.ErrUnauthenticated},
		{name: "catalog", err: service.Wrap(service.ErrCatalog, "tmdb.details", errors.New("502")), expected: service.ErrCatalog},
		{name: "joined", err: errors.Join(errors.New("a"), service.Wrap(service.ErrInvalid, "op", nil)), expected: service.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, service.KindOf(tt.err))
		})
	}
}
