// Package s3 implements the storage.ObjectStore contract over AWS S3
package s3

import (
	"context"
	"errors"
	"io"
	"net/http"

	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Client adapts the AWS S3 API to storage.ObjectStore
type Client struct {
	api *awss3.Client
}

// New builds a Client from the ambient AWS configuration chain
func New(ctx context.Context, region string) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "cannot load AWS configuration")
	}
	return &Client{api: awss3.NewFromConfig(cfg)}, nil
}

// NewFromAPI wraps an already-configured S3 client
func NewFromAPI(api *awss3.Client) *Client { return &Client{api: api} }

// NewStoreFor returns a storage.Store with an S3 client attached when any of
// the given locations resolves to object storage; purely local setups skip
// the AWS configuration chain entirely
func NewStoreFor(ctx context.Context, region string, locs ...string) (*storage.Store, error) {
	needed := false
	for _, l := range locs {
		loc, err := storage.Resolve(l)
		if err != nil {
			return nil, err
		}
		if loc.Backend == storage.BackendS3 {
			needed = true
			break
		}
	}
	if !needed {
		return storage.New(nil), nil
	}
	obj, err := New(ctx, region)
	if err != nil {
		return nil, err
	}
	return storage.New(obj), nil
}

// Get opens an object for reading
func (c *Client) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify(err)
	}
	return out.Body, nil
}

// Put uploads an object
func (c *Client) Put(ctx context.Context, bucket, key string, body io.Reader, length int64) error {
	_, err := c.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(length),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// Head probes an object and returns its size
func (c *Client) Head(ctx context.Context, bucket, key string) (int64, error) {
	out, err := c.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, classify(err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// List returns every object under a prefix
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	p := awss3.NewListObjectsV2Paginator(c.api, &awss3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, classify(err)
		}
		for _, obj := range page.Contents {
			out = append(out, storage.ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}
	return out, nil
}

// Delete removes a single object; deleting a missing key is not an error
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// DeletePrefix removes every object under a prefix in batches of up to 1000,
// the DeleteObjects API ceiling
func (c *Client) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	objs, err := c.List(ctx, bucket, prefix)
	if err != nil {
		return err
	}
	const batchMax = 1000
	for start := 0; start < len(objs); start += batchMax {
		end := min(start+batchMax, len(objs))
		ids := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, o := range objs[start:end] {
			ids = append(ids, s3types.ObjectIdentifier{Key: aws.String(o.Key)})
		}
		_, err := c.api.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return classify(err)
		}
	}
	return nil
}

// classify maps AWS API errors onto the platform error taxonomy
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return perr.Wrap(err, perr.ErrorCodeNotFound, "object not found")
		case "AccessDenied", "Forbidden":
			return perr.Wrap(err, perr.ErrorCodePermission, "access denied")
		}
	}
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return perr.Wrap(err, perr.ErrorCodeNotFound, "object not found")
		case http.StatusForbidden:
			return perr.Wrap(err, perr.ErrorCodePermission, "access denied")
		}
	}
	return perr.Wrap(err, perr.ErrorCodeUnavailable, "s3 request failed")
}
