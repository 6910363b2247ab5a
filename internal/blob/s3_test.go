package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestNewS3Bucket_AppliesConfig(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		return aws.Config{
			Region:      lo.Region,
			Credentials: lo.Credentials,
		}, nil
	}

	b, err := NewS3Bucket(context.Background(), S3Config{
		Region:    "us-east-1",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Endpoint:  "http://127.0.0.1:9000",
		Bucket:    "exports",
	})
	require.NoError(t, err)

	link, err := b.PresignGet(context.Background(), "exports/1/t.json", time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/exports/exports/1/t.json", u.Path, "path style addressing")
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestNewS3Bucket_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}

	_, err := NewS3Bucket(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestS3Bucket_Put(t *testing.T) {
	client := s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("k", "s", ""),
	})
	fp := &fakePutter{}
	b := &S3Bucket{bucket: "exports", client: fp, presigner: s3.NewPresignClient(client)}

	require.NoError(t, b.Put(context.Background(), "a.json", []byte(`{"posts":[]}`), "application/json"))
	assert.Equal(t, "exports", aws.ToString(fp.input.Bucket))
	assert.Equal(t, "a.json", aws.ToString(fp.input.Key))
	assert.Equal(t, "application/json", aws.ToString(fp.input.ContentType))
	assert.True(t, bytes.Equal([]byte(`{"posts":[]}`), fp.body))

	fp.err = errors.New("denied")
	err := b.Put(context.Background(), "a.json", nil, "application/json")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "denied"))
}

func TestMockBucket(t *testing.T) {
	m := NewMockBucket()
	_, err := m.PresignGet(context.Background(), "missing", time.Minute)
	assert.Error(t, err)

	require.NoError(t, m.Put(context.Background(), "k", []byte("v"), "text/plain"))
	link, err := m.PresignGet(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, link, "k")
}
