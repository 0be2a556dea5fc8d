package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	s := NewGRPCServer("127.0.0.1:0", nopLogger{}, time.Hour)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := s.loggingInterceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		if req != "req" {
			t.Fatalf("handler got %v", req)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "ok" {
		t.Fatalf("unexpected resp: %v", resp)
	}

	wantErr := status.Error(codes.Unavailable, "down")
	_, err = s.loggingInterceptor(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return nil, wantErr
	})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}
