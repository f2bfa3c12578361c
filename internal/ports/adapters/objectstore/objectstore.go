package objectstore

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipforge/internal/types"
)

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix defaults to "clips".
	Prefix string
	Log    logrus.FieldLogger
}

type putter interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Adapter publishes finished clips and their thumbnails to an S3-compatible
// bucket under <prefix>/<job_id>/<filename>.
type Adapter struct {
	client putter
	bucket string
	prefix string
	log    logrus.FieldLogger
}

// New connects to the endpoint and creates the bucket when missing.
func New(ctx context.Context, o Options) (*Adapter, error) {
	if o.Endpoint == "" || o.Bucket == "" {
		return nil, fmt.Errorf("object store: endpoint and bucket are required")
	}
	client, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	exists, err := client.BucketExists(ctx, o.Bucket)
	if err != nil {
		return nil, fmt.Errorf("object store bucket %s: %w", o.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, o.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("object store make bucket %s: %w", o.Bucket, err)
		}
	}
	return newAdapter(client, o), nil
}

func newAdapter(client putter, o Options) *Adapter {
	log := o.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	prefix := strings.Trim(o.Prefix, "/")
	if prefix == "" {
		prefix = "clips"
	}
	return &Adapter{client: client, bucket: o.Bucket, prefix: prefix, log: log.WithField("component", "objectstore")}
}

// Key is the object key of a file published for a job.
func (a *Adapter) Key(jobID, filename string) string {
	return path.Join(a.prefix, jobID, filepath.Base(filename))
}

// Publish uploads the clip, then its thumbnail when present, and returns the
// clip's key.
func (a *Adapter) Publish(ctx context.Context, jobID string, asset types.OutputAsset) (string, error) {
	key := a.Key(jobID, asset.Path)
	if err := a.put(ctx, asset.Path, key); err != nil {
		return "", err
	}
	if asset.ThumbnailPath != "" {
		if err := a.put(ctx, asset.ThumbnailPath, a.Key(jobID, asset.ThumbnailPath)); err != nil {
			return "", err
		}
	}
	return key, nil
}

func (a *Adapter) put(ctx context.Context, local, key string) error {
	info, err := a.client.FPutObject(ctx, a.bucket, key, local, minio.PutObjectOptions{ContentType: contentType(local)})
	if err != nil {
		return fmt.Errorf("upload %s to %s/%s: %w", filepath.Base(local), a.bucket, key, err)
	}
	a.log.WithFields(logrus.Fields{"key": key, "bytes": info.Size}).Debug("uploaded")
	return nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
