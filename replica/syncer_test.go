package replica

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestDetectScheme(t *testing.T) {
	cases := []struct {
		url  string
		want Scheme
	}{
		{"https://db.example.com", SchemeHTTPS},
		{"http://localhost:8080", SchemeHTTP},
		{"s3://bucket/key.db", SchemeS3},
		{"S3://bucket/key.db", SchemeS3},
		{"db.turso.io:443", SchemeHTTPS},
		{"ftp://host/file", SchemeUnknown},
	}

	for _, tc := range cases {
		if got := DetectScheme(tc.url); got != tc.want {
			t.Errorf("DetectScheme(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://my-bucket/replicas/app.db")
	if err != nil {
		t.Fatalf("Failed to parse S3 URL: %v", err)
	}
	if bucket != "my-bucket" {
		t.Errorf("Expected bucket 'my-bucket', got '%s'", bucket)
	}
	if key != "replicas/app.db" {
		t.Errorf("Expected key 'replicas/app.db', got '%s'", key)
	}

	if _, _, err := parseS3URL("s3://only-bucket"); err == nil {
		t.Error("Expected error for S3 URL without key")
	}
}

func TestNewDispatchesOnScheme(t *testing.T) {
	syncer, err := New("https://db.example.com", "tok", nil)
	if err != nil {
		t.Fatalf("Failed to build HTTPS syncer: %v", err)
	}
	if _, ok := syncer.(*HTTPSyncer); !ok {
		t.Errorf("Expected *HTTPSyncer, got %T", syncer)
	}

	syncer, err = New("s3://bucket/app.db", "", nil)
	if err != nil {
		t.Fatalf("Failed to build S3 syncer: %v", err)
	}
	if _, ok := syncer.(*S3Syncer); !ok {
		t.Errorf("Expected *S3Syncer, got %T", syncer)
	}

	if _, err := New("ftp://host/file", "", nil); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "lighter",
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestCheckToken(t *testing.T) {
	t.Run("expired JWT fails fast", func(t *testing.T) {
		err := checkToken(signedToken(t, time.Now().Add(-time.Hour)))
		if !errors.Is(err, ErrTokenExpired) {
			t.Errorf("Expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("valid JWT passes", func(t *testing.T) {
		if err := checkToken(signedToken(t, time.Now().Add(time.Hour))); err != nil {
			t.Errorf("Expected nil, got %v", err)
		}
	})

	t.Run("opaque token passes", func(t *testing.T) {
		if err := checkToken("not-a-jwt"); err != nil {
			t.Errorf("Expected nil for opaque token, got %v", err)
		}
	})

	t.Run("empty token passes", func(t *testing.T) {
		if err := checkToken(""); err != nil {
			t.Errorf("Expected nil for empty token, got %v", err)
		}
	})
}
