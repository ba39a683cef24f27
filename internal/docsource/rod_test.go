// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docsource

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, types.ErrNavigationTimeout},
		{"wrapped deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), types.ErrNavigationTimeout},
		{"element not found", &rod.ElementNotFoundError{}, types.ErrElementNotFound},
		{"cancelled", context.Canceled, context.Canceled},
		{"cdp failure", errors.New("websocket: close 1006"), types.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("opening https://example.org", tt.err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "opening https://example.org")
		})
	}
}

func TestClassifyCancelledIsNotRetryableKind(t *testing.T) {
	err := classify("waiting for a.pdf", context.Canceled)
	for _, kind := range []error{types.ErrNavigationTimeout, types.ErrElementNotFound, types.ErrTransport} {
		assert.NotErrorIs(t, err, kind)
	}
}

func TestRodCloseWithoutBrowser(t *testing.T) {
	s := &RodSource{}
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
