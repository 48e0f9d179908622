package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"studio-go/internal/studio"
)

// S3Vault is an S3-backed implementation of the MediaVault interface.
// Media lives under <prefix>/media/<checksum>. Credentials come from the
// standard AWS config/credential chain.
type S3Vault struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Vault creates a new S3 vault using the default AWS configuration chain.
// region may be empty, in which case AWS defaults apply.
func NewS3Vault(ctx context.Context, bucket, prefix, region string) (*S3Vault, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &S3Vault{
		client: s3.NewFromConfig(awsCfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// NewS3VaultFromClient wraps an existing client. Useful for tests and
// S3-compatible providers that need custom client options.
func NewS3VaultFromClient(client *s3.Client, bucket, prefix string) *S3Vault {
	return &S3Vault{client: client, bucket: bucket, prefix: prefix}
}

func (v *S3Vault) mediaKey(checksum string) string {
	return path.Join(v.prefix, "media", checksum)
}

// Put stores media identified by its checksum.
// The operation is idempotent: an object that already exists is not rewritten.
func (v *S3Vault) Put(checksum string, r io.Reader, size int64) error {
	ctx := context.Background()

	exists, err := v.Exists(checksum)
	if err != nil {
		return err
	}
	if exists {
		// Consume the reader to maintain expected behavior
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read media: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	_, err = v.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(v.bucket),
		Key:           aws.String(v.mediaKey(checksum)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("uploading media %s: %w", checksum, err)
	}
	return nil
}

// Get retrieves media by checksum and writes it to w.
func (v *S3Vault) Get(checksum string, w io.Writer) error {
	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.mediaKey(checksum)),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("media not found: %s", checksum)
		}
		return fmt.Errorf("fetching media %s: %w", checksum, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to read media: %w", err)
	}
	return nil
}

// Delete removes media by checksum. A missing checksum is not an error;
// S3 DeleteObject already succeeds for absent keys.
func (v *S3Vault) Delete(checksum string) error {
	_, err := v.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.mediaKey(checksum)),
	})
	if err != nil {
		return fmt.Errorf("deleting media %s: %w", checksum, err)
	}
	return nil
}

// Exists reports whether media for checksum is present
// (HTTP 200 from HeadObject; false on 404/NotFound).
func (v *S3Vault) Exists(checksum string) (bool, error) {
	_, err := v.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.mediaKey(checksum)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking media %s: %w", checksum, err)
}

// ValidateSetup verifies the bucket exists and is reachable with the
// configured credentials.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

// isNotFound reports whether err is an S3 404/NotFound/NoSuchKey response.
func isNotFound(err error) bool {
	// Check for HTTP 404 response error
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		if respErr.HTTPStatusCode() == 404 {
			return true
		}
	}

	// Check for API error code NotFound / NoSuchKey
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "NotFound" || code == "NoSuchKey" {
			return true
		}
	}

	return false
}

// Compile-time check that S3Vault implements the MediaVault interface
var _ studio.MediaVault = (*S3Vault)(nil)
