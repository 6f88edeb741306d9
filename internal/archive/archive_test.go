package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type fakePutter struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket, f.key, f.contentType = *in.Bucket, *in.Key, *in.ContentType
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestSnapshotKey(t *testing.T) {
	season := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	got := SnapshotKey(season, "driver", 7)
	expected := "standings/11111111-2222-3333-4444-555555555555/driver/v0007.json"
	if got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}

func TestArchiver_Upload(t *testing.T) {
	fake := &fakePutter{}
	a := newArchiver(fake, "league-archive", "https://cdn.example.com")

	url, err := a.Upload(context.Background(), "standings/s/driver/v0001.json", []byte(`{"entries":[]}`))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://cdn.example.com/standings/s/driver/v0001.json" {
		t.Errorf("Unexpected public URL %s", url)
	}
	if fake.bucket != "league-archive" || fake.contentType != "application/json" || string(fake.body) != `{"entries":[]}` {
		t.Errorf("Unexpected upload %+v", fake)
	}
}

func TestArchiver_UploadError(t *testing.T) {
	boom := errors.New("access denied")
	a := newArchiver(&fakePutter{err: boom}, "b", "https://cdn.example.com")
	if _, err := a.Upload(context.Background(), "k", nil); !errors.Is(err, boom) {
		t.Errorf("Expected the upload error to be wrapped, got %v", err)
	}
}

func TestArchiver_PublicURL(t *testing.T) {
	tests := []struct {
		base, key, expected string
	}{
		{"https://cdn.example.com", "a/b.json", "https://cdn.example.com/a/b.json"},
		{"https://cdn.example.com/", "/a/b.json", "https://cdn.example.com/a/b.json"},
		{"https://cdn.example.com/archive", "a/b.json", "https://cdn.example.com/archive/a/b.json"},
	}
	for _, test := range tests {
		got, err := newArchiver(nil, "b", test.base).PublicURL(test.key)
		if err != nil {
			t.Fatalf("PublicURL: %v", err)
		}
		if got != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, got)
		}
	}
}

func TestNewR2_RequiresEveryField(t *testing.T) {
	_, err := NewR2(context.Background(), R2Config{AccountID: "acc", Bucket: "b"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}
