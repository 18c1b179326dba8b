package cache

import (
	"context"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestNewMinioStore_RequiresEndpointAndBucket(t *testing.T) {
	t.Parallel()

	if _, err := NewMinioStore(context.Background(), MinioConfig{Bucket: "cache"}); err == nil {
		t.Fatalf("expected error without endpoint")
	}
	if _, err := NewMinioStore(context.Background(), MinioConfig{Endpoint: "127.0.0.1:9000"}); err == nil {
		t.Fatalf("expected error without bucket")
	}
}

func TestMinioStore_ObjectName(t *testing.T) {
	t.Parallel()

	s := &MinioStore{prefix: "scheduler"}
	got, err := s.objectName("players/id_276.json")
	if err != nil {
		t.Fatalf("objectName error: %v", err)
	}
	if got != "scheduler/players/id_276.json" {
		t.Fatalf("objectName = %q", got)
	}

	if _, err := s.objectName("../escape.json"); err == nil {
		t.Fatalf("expected invalid key error")
	}
}

func TestIsMinioNotFound(t *testing.T) {
	t.Parallel()

	if !isMinioNotFound(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Fatalf("expected NoSuchKey to be not found")
	}
	if isMinioNotFound(minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}) {
		t.Fatalf("missing bucket must not read as a cache miss")
	}
	if isMinioNotFound(minio.ErrorResponse{StatusCode: http.StatusNotFound}) {
		t.Fatalf("bare 404 without NoSuchKey must not read as a cache miss")
	}
	if isMinioNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}) {
		t.Fatalf("access denied is not a miss")
	}
}
