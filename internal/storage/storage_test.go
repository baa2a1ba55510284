package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "render.mp4")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLocalStore(t *testing.T) {
	src := writeArtifact(t, "movie")
	out := filepath.Join(t.TempDir(), "videos")

	loc, err := NewLocalStore(out).Save(context.Background(), "abc", src)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if filepath.Base(loc.Path) != "abc.mp4" {
		t.Errorf("expected abc.mp4, got %s", loc.Path)
	}
	if !strings.HasPrefix(loc.URL, "file://") {
		t.Errorf("expected file URL, got %s", loc.URL)
	}
	data, err := os.ReadFile(loc.Path)
	if err != nil || string(data) != "movie" {
		t.Errorf("unexpected stored content %q (%v)", data, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("expected source to be moved")
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Store(t *testing.T) {
	src := writeArtifact(t, "movie")
	client := &fakeS3{}
	store := newS3Store(zerolog.Nop(), client, S3Config{Bucket: "renders", Prefix: "out"})

	loc, err := store.Save(context.Background(), "abc", src)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if aws.ToString(client.input.Bucket) != "renders" || aws.ToString(client.input.Key) != "out/abc.mp4" {
		t.Errorf("unexpected target %s/%s", aws.ToString(client.input.Bucket), aws.ToString(client.input.Key))
	}
	if aws.ToString(client.input.ContentType) != ContentType {
		t.Errorf("expected %s, got %s", ContentType, aws.ToString(client.input.ContentType))
	}
	if client.body != "movie" {
		t.Errorf("unexpected uploaded body %q", client.body)
	}
	if loc.URL != "s3://renders/out/abc.mp4" {
		t.Errorf("unexpected url %s", loc.URL)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("expected local copy removed after upload")
	}

	public := newS3Store(zerolog.Nop(), &fakeS3{}, S3Config{Bucket: "renders", PublicBaseURL: "https://cdn.example.com/"})
	loc, err = public.Save(context.Background(), "xyz", writeArtifact(t, "m"))
	if err != nil {
		t.Fatal(err)
	}
	if loc.URL != "https://cdn.example.com/xyz.mp4" {
		t.Errorf("unexpected public url %s", loc.URL)
	}
}

func TestS3StoreFailureKeepsLocalFile(t *testing.T) {
	src := writeArtifact(t, "movie")
	store := newS3Store(zerolog.Nop(), &fakeS3{err: errors.New("access denied")}, S3Config{Bucket: "renders"})

	if _, err := store.Save(context.Background(), "abc", src); err == nil {
		t.Fatal("expected upload error")
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("expected local file kept for the caller to clean up, got %v", err)
	}
}
