package s3

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drivinghttp "github.com/lunavision/facesink/internal/adapters/driving/http"
)

// The store backs the readiness endpoint, so it must expose Ping.
var _ drivinghttp.Pinger = (*Store)(nil)

func TestConnect_RequiresBucket(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestFullKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{"no prefix", "", "incoming/doc.json", "incoming/doc.json"},
		{"with prefix", "facesink/", "incoming/doc.json", "facesink/incoming/doc.json"},
		{"prefix and processed key", "facesink/", "processed/doc.json", "facesink/processed/doc.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(nil, "faces", tt.prefix)
			assert.Equal(t, tt.want, s.fullKey(tt.key))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	responseErr := func(status int) error {
		return &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{
				Response: &stdhttp.Response{StatusCode: status},
			},
			Err: errors.New("request failed"),
		}
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"typed not found", &types.NotFound{}, true},
		{"no such key", &types.NoSuchKey{}, true},
		{"wrapped not found", fmt.Errorf("head object: %w", &types.NotFound{}), true},
		{"bare 404 response", responseErr(404), true},
		{"500 response", responseErr(500), false},
		{"generic error", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}
