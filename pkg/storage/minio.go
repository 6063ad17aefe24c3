// Package storage提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"hotel-insights-go/internal/config"
	"hotel-insights-go/pkg/log"
)

// MinioClient 是一个全局的 MinIO 客户端实例，未启用时为 nil。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(ctx context.Context, cfg config.MinIOConfig) error {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	bucketName := cfg.BucketName
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("[MinIO] 存储桶 '%s' 不存在，正在创建...", bucketName)
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}

	MinioClient = client
	log.Info("[MinIO] 客户端初始化成功")
	return nil
}

// Mirror 把本地文件镜像到一个固定的对象上。
type Mirror struct {
	client *minio.Client
	bucket string
	object string
}

// NewMirror 返回一个镜像；client 为 nil 时返回 nil，调用方据此跳过镜像。
func NewMirror(client *minio.Client, bucket, object string) *Mirror {
	if client == nil {
		return nil
	}
	return &Mirror{client: client, bucket: bucket, object: object}
}

// Upload 上传本地文件。
func (m *Mirror) Upload(ctx context.Context, localPath string) error {
	_, err := m.client.FPutObject(ctx, m.bucket, m.object, localPath, minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload %s to %s/%s: %w", localPath, m.bucket, m.object, err)
	}
	return nil
}

// Download 下载对象到本地路径。对象不存在时返回 ErrObjectNotFound。
func (m *Mirror) Download(ctx context.Context, localPath string) error {
	err := m.client.FGetObject(ctx, m.bucket, m.object, localPath, minio.GetObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrObjectNotFound
		}
		return fmt.Errorf("download %s/%s: %w", m.bucket, m.object, err)
	}
	return nil
}

// ErrObjectNotFound 表示镜像对象尚未上传过。
var ErrObjectNotFound = errors.New("mirror object not found")
