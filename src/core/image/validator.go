package image

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"car-analyzer-go/src/configs"
	"car-analyzer-go/src/core/utils"
)

var (
	// ErrUnsupportedFormat 文件扩展名不在允许列表中
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrFileTooLarge 文件大小超过限制
	ErrFileTooLarge = errors.New("image file too large")
)

// ImageSecurityValidator 图片安全验证器
type ImageSecurityValidator struct {
	config *configs.SecurityConfig
	logger *utils.Logger
}

// NewImageSecurityValidator 创建新的图片安全验证器
func NewImageSecurityValidator(config *configs.SecurityConfig, logger *utils.Logger) *ImageSecurityValidator {
	return &ImageSecurityValidator{
		config: config,
		logger: logger,
	}
}

// 图片格式魔数签名
var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"jpg":  {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
}

// Extension 返回文件名的小写扩展名（不含点）
func Extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// ValidateUpload 只根据文件名和大小做验证，不读取内容
func (v *ImageSecurityValidator) ValidateUpload(filename string, size int64) ValidationResult {
	ext := Extension(filename)
	result := ValidationResult{Extension: ext, FileSize: size}

	if !v.isFormatAllowed(ext) {
		result.Error = fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
		return result
	}

	if v.config.MaxFileSize > 0 && size > v.config.MaxFileSize {
		result.Error = fmt.Errorf("%w: %d bytes, max %d bytes", ErrFileTooLarge, size, v.config.MaxFileSize)
		result.SecurityRisk = "文件过大，可能是DoS攻击"
		v.logger.Warn("检测到超大文件", map[string]interface{}{
			"size":     size,
			"max_size": v.config.MaxFileSize,
			"filename": filename,
		})
		return result
	}

	result.IsValid = true
	return result
}

// MatchesSignature 检查文件头是否与扩展名对应的格式一致
func (v *ImageSecurityValidator) MatchesSignature(data []byte, ext string) bool {
	signature, exists := imageSignatures[strings.ToLower(ext)]
	if !exists {
		return false
	}
	return bytes.HasPrefix(data, signature)
}

// isFormatAllowed 检查格式是否被允许
func (v *ImageSecurityValidator) isFormatAllowed(format string) bool {
	if format == "" {
		return false
	}
	for _, allowedFormat := range v.config.AllowedFormats {
		if strings.EqualFold(strings.TrimPrefix(allowedFormat, "."), format) {
			return true
		}
	}
	return false
}
