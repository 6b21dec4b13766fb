package common

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGRPCError(t *testing.T) {
	assert.NoError(t, GRPCError(nil))

	cases := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("%w: site_id is required", ErrInvalidInput), codes.InvalidArgument},
		{fmt.Errorf("%w: depth", ErrValidation), codes.InvalidArgument},
		{fmt.Errorf("%w: slot overlap", ErrLayoutInvariant), codes.InvalidArgument},
		{fmt.Errorf("%w: site P-9", ErrNotFound), codes.NotFound},
		{fmt.Errorf("%w: locked", ErrDatabase), codes.Internal},
		{assert.AnError, codes.Internal},
	}
	for _, tc := range cases {
		st, ok := status.FromError(GRPCError(tc.err))
		if assert.True(t, ok, tc.err.Error()) {
			assert.Equal(t, tc.code, st.Code(), tc.err.Error())
			assert.Equal(t, tc.err.Error(), st.Message())
		}
	}
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "load"))
	err := WrapError(ErrNotFound, "load site")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "load site: resource not found", err.Error())
}
