package objectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/forPelevin/clipforge/internal/types"
)

type put struct {
	bucket, key, file, contentType string
}

type fakePutter struct {
	puts []put
	err  error
}

func (f *fakePutter) FPutObject(_ context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	f.puts = append(f.puts, put{bucket, object, filePath, opts.ContentType})
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: 1}, nil
}

func TestPublish_UploadsClipAndThumbnail(t *testing.T) {
	fp := &fakePutter{}
	a := newAdapter(fp, Options{Bucket: "media"})

	key, err := a.Publish(context.Background(), "job-1", types.OutputAsset{
		Path:          "/out/run/vod_clip1_tiktok.mp4",
		ThumbnailPath: "/out/run/vod_clip1_tiktok.jpg",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if key != "clips/job-1/vod_clip1_tiktok.mp4" {
		t.Fatalf("unexpected key %q", key)
	}
	want := []put{
		{"media", "clips/job-1/vod_clip1_tiktok.mp4", "/out/run/vod_clip1_tiktok.mp4", "video/mp4"},
		{"media", "clips/job-1/vod_clip1_tiktok.jpg", "/out/run/vod_clip1_tiktok.jpg", "image/jpeg"},
	}
	if len(fp.puts) != len(want) {
		t.Fatalf("expected %d uploads, got %+v", len(want), fp.puts)
	}
	for i := range want {
		if fp.puts[i] != want[i] {
			t.Fatalf("upload %d = %+v, want %+v", i, fp.puts[i], want[i])
		}
	}
}

func TestPublish_CustomPrefixAndError(t *testing.T) {
	a := newAdapter(&fakePutter{err: errors.New("access denied")}, Options{Bucket: "media", Prefix: "/shorts/"})
	if got := a.Key("j", "/x/y.mp4"); got != "shorts/j/y.mp4" {
		t.Fatalf("unexpected key %q", got)
	}
	if _, err := a.Publish(context.Background(), "j", types.OutputAsset{Path: "/x/y.mp4"}); err == nil {
		t.Fatalf("expected upload error")
	}
}

func TestNew_RequiresEndpointAndBucket(t *testing.T) {
	if _, err := New(context.Background(), Options{Bucket: "b"}); err == nil {
		t.Fatalf("expected error without endpoint")
	}
}
