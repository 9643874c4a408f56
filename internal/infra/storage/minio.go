package storage

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/prodpulse/internal/domain/analysis"
)

// Uploader writes one object into the configured bucket.
type Uploader func(ctx context.Context, key string, body []byte, opts minio.PutObjectOptions) error

type Store struct {
	put        Uploader
	bucketName string
	host       string
}

// NewWithUploader builds a Store on top of an arbitrary uploader.
func NewWithUploader(host, bucket string, put Uploader) *Store {
	return &Store{put: put, bucketName: bucket, host: host}
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create minio client", goerr.V("endpoint", endpoint))
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check bucket", goerr.V("bucket", bucket))
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, goerr.Wrap(err, "failed to create bucket", goerr.V("bucket", bucket))
		}
	}

	put := func(ctx context.Context, key string, body []byte, opts minio.PutObjectOptions) error {
		_, err := cli.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)), opts)
		return err
	}
	return NewWithUploader(cli.EndpointURL().Host, bucket, put), nil
}

// Put uploads the rendered diagnosis of ev and returns its object URL.
func (s *Store) Put(ctx context.Context, ev *domain.Event) (string, error) {
	if ev == nil || ev.ID == 0 {
		return "", goerr.New("event must be persisted before archiving")
	}
	key := ObjectKey(ev)
	body := Render(ev)

	opts := minio.PutObjectOptions{
		ContentType: "text/html; charset=utf-8",
		UserMetadata: map[string]string{
			"analysis-id": strconv.FormatInt(int64(ev.ID), 10),
			"severity":    string(ev.Severity),
			"backend":     ev.Backend,
		},
	}
	if err := s.put(ctx, key, body, opts); err != nil {
		return "", goerr.Wrap(err, "failed to upload diagnosis", goerr.V("key", key))
	}

	// URL publik (jika bucket public), kalau private harus generate presigned URL
	return fmt.Sprintf("http://%s/%s/%s", s.host, s.bucketName, key), nil
}

// ObjectKey groups archived diagnoses by UTC day.
func ObjectKey(ev *domain.Event) string {
	return fmt.Sprintf("diagnoses/%s/%d.html", ev.CreatedAt.UTC().Format("2006/01/02"), ev.ID)
}

// Render builds a standalone HTML page around the stored diagnosis.
func Render(ev *domain.Event) []byte {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n</head><body>\n", html.EscapeString(ev.Title))
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(ev.Title))
	fmt.Fprintf(&b, "<p>Severity: <strong>%s</strong> &middot; %s &middot; #%d</p>\n",
		html.EscapeString(string(ev.Severity)), ev.CreatedAt.UTC().Format(time.RFC3339), ev.ID)
	b.WriteString(ev.DiagnosisText)
	fmt.Fprintf(&b, "\n<h2>Submitted log</h2>\n<pre>%s</pre>\n</body></html>\n", html.EscapeString(ev.InputText))
	return b.Bytes()
}
