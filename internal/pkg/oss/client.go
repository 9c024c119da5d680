package oss

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/stake_go_server/config"
)

type Client struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	cdnDomain  string
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Client{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.BucketName,
		cdnDomain:  cfg.CDNDomain,
	}, nil
}

// UploadReport 上传报表产物，返回访问 URL
func (c *Client) UploadReport(name string, data []byte) (string, error) {
	objectKey := fmt.Sprintf("reports/%s_%s", time.Now().Format("20060102_150405"), name)

	err := c.bucket.PutObject(objectKey, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	return c.buildURL(objectKey), nil
}

// SphereImageURL 团队层级球体图的静态资源 URL
func (c *Client) SphereImageURL(level int) string {
	return c.buildURL(fmt.Sprintf("spheres/level_%d.png", level))
}

func (c *Client) buildURL(objectKey string) string {
	if c.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", strings.TrimSuffix(c.cdnDomain, "/"), objectKey)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.bucketName, "oss-cn-hangzhou.aliyuncs.com", objectKey)
}
