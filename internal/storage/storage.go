// Package storage はオブジェクトストレージへの画像アップロードを提供する。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStorage はオブジェクトの保存・削除インターフェース。
type ObjectStorage interface {
	// Upload はデータをアップロードし、公開URLを返す。
	Upload(ctx context.Context, folder, filename, contentType string, data []byte) (string, error)

	// Delete は公開URLが指すオブジェクトを削除する。
	// URLにバケットセグメントが含まれない場合は何もせずnilを返す。
	Delete(ctx context.Context, publicURL string) error
}

// Config はS3互換ストレージへの接続設定。
type Config struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// S3Storage はS3互換APIを使用するObjectStorage実装。
// MinIOやSupabase Storageなどのエンドポイントを想定し、
// パススタイルのアドレッシングを使用する。
type S3Storage struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewS3Storage はS3Storageを生成する。
func NewS3Storage(ctx context.Context, cfg Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload はデータをアップロードし、公開URLを返す。
// オブジェクトキーは folder/タイムスタンプ-ファイル名 の形式で、
// 同名ファイルの衝突を避ける。
func (s *S3Storage) Upload(ctx context.Context, folder, filename, contentType string, data []byte) (string, error) {
	key := BuildObjectKey(folder, filename, time.Now())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return s.publicBaseURL + "/" + key, nil
}

// Delete は公開URLが指すオブジェクトを削除する。
func (s *S3Storage) Delete(ctx context.Context, publicURL string) error {
	key, ok := ExtractObjectKey(publicURL, s.bucket)
	if !ok {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// BuildObjectKey は衝突しにくいオブジェクトキーを構築する。
// ファイル名の空白はアンダースコアに置換する。
func BuildObjectKey(folder, filename string, now time.Time) string {
	safe := strings.ReplaceAll(filename, " ", "_")
	return fmt.Sprintf("%s/%d-%s", strings.Trim(folder, "/"), now.UnixMilli(), safe)
}

// ExtractObjectKey は公開URLからバケット以降のオブジェクトキーを抽出する。
// パスにバケット名のセグメントが見つからない場合はfalseを返す。
func ExtractObjectKey(publicURL, bucket string) (string, bool) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, segment := range segments {
		if segment == bucket && i+1 < len(segments) {
			return strings.Join(segments[i+1:], "/"), true
		}
	}
	return "", false
}

// compile-time interface check
var _ ObjectStorage = (*S3Storage)(nil)
