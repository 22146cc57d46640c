package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"crosspost/internal"
	"crosspost/internal/model"
)

// s3Store keeps credentials as JSON objects under a tokens/ prefix in
// a bucket, so several machines can share one set of logins.
type s3Store struct {
	bucket string
	prefix string
	api    *awss3.Client
}

// NewS3 returns an S3-backed store using the config's bucket and
// tokens prefix.
func NewS3(cfg internal.Config) (Store, error) {
	endpoint := cfg.S3Endpoint
	forcePathStyle := !strings.Contains(endpoint, "amazonaws.com")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = forcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
	})

	return &s3Store{bucket: cfg.S3Bucket, prefix: cfg.TokensPrefix, api: client}, nil
}

func (s *s3Store) key(p model.Platform) string {
	return s.prefix + string(p) + ".json"
}

func (s *s3Store) Get(ctx context.Context, p model.Platform) (model.Credential, bool, error) {
	key := s.key(p)
	out, err := s.api.GetObject(ctx, &awss3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return model.Credential{}, false, nil
		}
		return model.Credential{}, false, err
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return model.Credential{}, false, err
	}
	var cred model.Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		return model.Credential{}, false, fmt.Errorf("decode credential for %s: %w", p, err)
	}
	return cred, true, nil
}

func (s *s3Store) Put(ctx context.Context, p model.Platform, cred model.Credential) error {
	if err := checkShape(p, cred); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	key := s.key(p)
	contentType := "application/json"
	_, err = s.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        strings.NewReader(string(b)),
		ContentType: &contentType,
	})
	return err
}

func (s *s3Store) Clear(ctx context.Context, p model.Platform) error {
	key := s.key(p)
	_, err := s.api.DeleteObject(ctx, &awss3.DeleteObjectInput{Bucket: &s.bucket, Key: &key})
	return err
}
