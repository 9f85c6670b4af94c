package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMapToGRPCError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
		http int
	}{
		{"invalid argument", fmt.Errorf("%w: content is blank", ErrInvalidArgument), codes.InvalidArgument, http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: chat", ErrNotFound), codes.NotFound, http.StatusNotFound},
		{"storage", fmt.Errorf("%w: disk", ErrStorageUnavailable), codes.Unavailable, http.StatusServiceUnavailable},
		{"unauthenticated", ErrUnauthenticated, codes.Unauthenticated, http.StatusUnauthorized},
		{"foreign connection", ErrUnknownConnection, codes.NotFound, http.StatusNotFound},
		{"anything else", fmt.Errorf("boom"), codes.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			st, ok := status.FromError(MapToGRPCError(tt.err))
			req.True(ok)
			req.Equal(tt.code, st.Code())
			req.Equal(tt.http, HTTPStatus(tt.err))
		})
	}
}

func TestMapToGRPCError_Keeps_Existing_Status(t *testing.T) {
	req := require.New(t)
	err := status.Error(codes.Aborted, "already a status")

	req.Equal(err, MapToGRPCError(err))
	req.NoError(MapToGRPCError(nil))
}
