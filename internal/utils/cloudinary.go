package utils

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"admithub/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// StorageConfig holds configuration settings for CloudinaryService.
type StorageConfig struct {
	MaxFileSize     int64               // Maximum allowed file size in bytes
	UploadTimeout   time.Duration       // Timeout for upload operations
	DeleteTimeout   time.Duration       // Timeout for delete operations
	MaxRetries      int                 // Maximum retry attempts for uploads
	AllowedTypes    map[string]bool     // Allowed MIME types
	ValidExtensions map[string][]string // Valid extensions per MIME type
}

// DefaultStorageConfig provides default configuration values.
// Applicant media is either a profile photo or a recorded video.
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		MaxFileSize:   100 * 1024 * 1024,
		UploadTimeout: 120 * time.Second,
		DeleteTimeout: 10 * time.Second,
		MaxRetries:    3,
		AllowedTypes: map[string]bool{
			"image/jpeg":      true,
			"image/png":       true,
			"image/gif":       true,
			"image/webp":      true,
			"video/mp4":       true,
			"video/webm":      true,
			"video/quicktime": true,
		},
		ValidExtensions: map[string][]string{
			"image/jpeg":      {".jpg", ".jpeg"},
			"image/png":       {".png"},
			"image/gif":       {".gif"},
			"image/webp":      {".webp"},
			"video/mp4":       {".mp4"},
			"video/webm":      {".webm"},
			"video/quicktime": {".mov"},
		},
	}
}

// FileStorage defines the interface for file storage operations.
type FileStorage interface {
	UploadFile(ctx context.Context, file *multipart.FileHeader, folder string) (*UploadResult, error)
	DeleteFile(ctx context.Context, publicID string) error
	ValidateFile(ctx context.Context, file *multipart.FileHeader) error
}

// CloudinaryService wraps the Cloudinary client and configuration.
type CloudinaryService struct {
	Client *cloudinary.Cloudinary
	Config StorageConfig
	Logger *zap.Logger
}

// UploadResult contains the result of a file upload.
type UploadResult struct {
	URL      string
	PublicID string
	Format   string
	Size     int
	Duration float64
}

// Custom errors for specific failure cases.
var (
	ErrFileTooLarge       = fmt.Errorf("file size exceeds limit")
	ErrInvalidContentType = fmt.Errorf("invalid content type")
	ErrInvalidExtension   = fmt.Errorf("invalid file extension")
	ErrUnableToOpenFile   = fmt.Errorf("unable to open file")
	ErrUnableToReadFile   = fmt.Errorf("unable to read file")
	ErrUnableToResetFile  = fmt.Errorf("unable to reset file position")
	ErrCloudinaryInit     = fmt.Errorf("failed to initialize Cloudinary")
	ErrMissingCredentials = fmt.Errorf("cloudinary credentials are missing")
	ErrUploadFailed       = fmt.Errorf("failed to upload file")
	ErrDeleteFailed       = fmt.Errorf("failed to delete file")
)

// ptrBool returns a pointer to a bool.
func ptrBool(b bool) *bool {
	return &b
}

// NewCloudinaryService creates a CloudinaryService from application config.
func NewCloudinaryService(cfg *config.CloudinaryConfig, logger *zap.Logger) (*CloudinaryService, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingCredentials
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCloudinaryInit, err)
	}

	storageConfig := DefaultStorageConfig()
	if cfg.MaxFileSize > 0 {
		storageConfig.MaxFileSize = cfg.MaxFileSize
	}

	service := &CloudinaryService{
		Client: cld,
		Config: storageConfig,
		Logger: logger,
	}

	logger.Info("Cloudinary service initialized successfully",
		zap.String("cloud_name", cfg.CloudName))
	return service, nil
}

// UploadFile uploads applicant media with retries.
func (c *CloudinaryService) UploadFile(ctx context.Context, file *multipart.FileHeader, folder string) (*UploadResult, error) {
	startTime := time.Now()
	c.Logger.Info("Starting file upload", zap.String("filename", file.Filename), zap.Int64("size", file.Size))

	ctx, cancel := context.WithTimeout(ctx, c.Config.UploadTimeout)
	defer cancel()

	src, err := file.Open()
	if err != nil {
		c.Logger.Error("Failed to open file", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnableToOpenFile, err)
	}
	defer src.Close()

	uploadParams := uploader.UploadParams{
		Folder:         folder,
		UseFilename:    ptrBool(true),
		UniqueFilename: ptrBool(true),
		ResourceType:   "auto",
	}

	var result *uploader.UploadResult
	operation := func() error {
		// Each attempt must start from the beginning of the file
		if _, seekErr := src.Seek(0, io.SeekStart); seekErr != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrUnableToResetFile, seekErr))
		}
		var opErr error
		result, opErr = c.Client.Upload.Upload(ctx, src, uploadParams)
		return opErr
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.Config.UploadTimeout / 2
	err = backoff.RetryNotify(
		operation,
		backoff.WithMaxRetries(b, uint64(c.Config.MaxRetries)),
		func(err error, d time.Duration) {
			c.Logger.Warn("Upload attempt failed",
				zap.String("filename", file.Filename),
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)
	if err != nil {
		c.Logger.Error("All upload attempts failed",
			zap.String("filename", file.Filename),
			zap.Int("attempts", c.Config.MaxRetries),
			zap.Error(err))
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrUploadFailed, c.Config.MaxRetries, err)
	}

	c.Logger.Info("File uploaded successfully",
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size),
		zap.Duration("duration", time.Since(startTime)),
		zap.String("public_id", result.PublicID),
		zap.String("url", result.SecureURL))

	return &UploadResult{
		URL:      result.SecureURL,
		PublicID: result.PublicID,
		Format:   result.Format,
		Size:     result.Bytes,
	}, nil
}

// DeleteFile removes a file from Cloudinary by its public ID.
func (c *CloudinaryService) DeleteFile(ctx context.Context, publicID string) error {
	startTime := time.Now()
	c.Logger.Info("Starting file deletion", zap.String("public_id", publicID))

	ctx, cancel := context.WithTimeout(ctx, c.Config.DeleteTimeout)
	defer cancel()

	_, err := c.Client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		c.Logger.Error("Failed to delete file",
			zap.String("public_id", publicID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	c.Logger.Info("File deleted successfully",
		zap.String("public_id", publicID),
		zap.Duration("duration", time.Since(startTime)))
	return nil
}

// ValidateFile performs size, content-type and extension validation.
func (c *CloudinaryService) ValidateFile(ctx context.Context, file *multipart.FileHeader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if file.Size > c.Config.MaxFileSize {
		c.Logger.Warn("File size validation failed",
			zap.String("filename", file.Filename),
			zap.Int64("size", file.Size),
			zap.Int64("limit", c.Config.MaxFileSize))
		return fmt.Errorf("%w: %d bytes exceeds %d bytes", ErrFileTooLarge, file.Size, c.Config.MaxFileSize)
	}

	src, err := file.Open()
	if err != nil {
		c.Logger.Error("Failed to open file for validation", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnableToOpenFile, err)
	}
	defer src.Close()

	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		c.Logger.Error("Failed to read file for validation", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnableToReadFile, err)
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		c.Logger.Error("Failed to reset file position", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnableToResetFile, err)
	}

	contentType := http.DetectContentType(buffer[:n])

	if !c.Config.AllowedTypes[contentType] {
		c.Logger.Warn("Content type not allowed",
			zap.String("filename", file.Filename),
			zap.String("content_type", contentType))
		return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}

	ext := ""
	if idx := strings.LastIndex(file.Filename, "."); idx >= 0 {
		ext = strings.ToLower(file.Filename[idx:])
	}

	if extensions, exists := c.Config.ValidExtensions[contentType]; exists {
		if !slices.Contains(extensions, ext) {
			c.Logger.Warn("File extension validation failed",
				zap.String("filename", file.Filename),
				zap.String("extension", ext),
				zap.String("content_type", contentType))
			return fmt.Errorf("%w: file has extension %s but content is %s (expected: %s)",
				ErrInvalidExtension, ext, contentType, strings.Join(extensions, ", "))
		}
	}

	c.Logger.Info("File passed validation", zap.String("filename", file.Filename))
	return nil
}

// GetFileTypeCategory categorizes content types into broader categories.
func GetFileTypeCategory(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	default:
		return "other"
	}
}
