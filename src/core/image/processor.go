package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync/atomic"

	_ "image/png" // 注册PNG解码器

	"car-analyzer-go/src/configs"
	"car-analyzer-go/src/core/utils"

	"golang.org/x/image/draw"
)

// ImageProcessor 图片处理器：验证、解码，必要时缩放
type ImageProcessor struct {
	config    *configs.SecurityConfig
	validator *ImageSecurityValidator
	logger    *utils.Logger
	metrics   *ImageMetrics
}

// NewImageProcessor 创建新的图片处理器
func NewImageProcessor(config *configs.SecurityConfig, logger *utils.Logger) *ImageProcessor {
	return &ImageProcessor{
		config:    config,
		validator: NewImageSecurityValidator(config, logger),
		logger:    logger,
		metrics:   &ImageMetrics{},
	}
}

// Validate 在读取内容之前按文件名和声明大小验证上传
func (p *ImageProcessor) Validate(filename string, size int64) error {
	result := p.validator.ValidateUpload(filename, size)
	if !result.IsValid {
		atomic.AddInt64(&p.metrics.FailedValidations, 1)
		return result.Error
	}
	return nil
}

// MaxFileSize 返回允许的最大上传字节数
func (p *ImageProcessor) MaxFileSize() int64 {
	return p.config.MaxFileSize
}

// Decode 将上传内容解码为内存中的图片，超出尺寸限制时缩放并重新编码为JPEG
func (p *ImageProcessor) Decode(filename string, data []byte) (ImageData, error) {
	atomic.AddInt64(&p.metrics.TotalProcessed, 1)

	if p.config.MaxFileSize > 0 && int64(len(data)) > p.config.MaxFileSize {
		atomic.AddInt64(&p.metrics.FailedValidations, 1)
		return ImageData{}, fmt.Errorf("%w: %d bytes, max %d bytes", ErrFileTooLarge, len(data), p.config.MaxFileSize)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageData{}, p.decodeFailed(filename, data, err)
	}

	totalPixels := int64(cfg.Width) * int64(cfg.Height)
	if p.config.MaxPixels > 0 && totalPixels > p.config.MaxPixels {
		atomic.AddInt64(&p.metrics.FailedDecodes, 1)
		return ImageData{}, fmt.Errorf("像素总数超限: %d，最大允许: %d", totalPixels, p.config.MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ImageData{}, p.decodeFailed(filename, data, err)
	}

	bounds := img.Bounds()
	result := ImageData{
		Filename: filename,
		Data:     data,
		Format:   format,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}

	if p.needsResize(result.Width, result.Height) {
		resized, err := p.resize(img)
		if err != nil {
			return ImageData{}, err
		}
		atomic.AddInt64(&p.metrics.Resized, 1)

		p.logger.Debug("图片已缩放", map[string]interface{}{
			"filename": filename,
			"from":     fmt.Sprintf("%dx%d", result.Width, result.Height),
			"to":       fmt.Sprintf("%dx%d", resized.Width, resized.Height),
		})
		resized.Filename = filename
		return resized, nil
	}

	p.logger.Debug("图片解码完成", map[string]interface{}{
		"filename": filename,
		"format":   result.Format,
		"width":    result.Width,
		"height":   result.Height,
		"size":     len(data),
	})
	return result, nil
}

func (p *ImageProcessor) decodeFailed(filename string, data []byte, err error) error {
	atomic.AddInt64(&p.metrics.FailedDecodes, 1)
	ext := Extension(filename)
	if !p.validator.MatchesSignature(data, ext) {
		p.logger.Warn("文件头与扩展名不匹配", map[string]interface{}{
			"filename":      filename,
			"actual_header": fmt.Sprintf("%x", data[:min(len(data), 16)]),
		})
	}
	return fmt.Errorf("cannot identify image file %q: %w", filename, err)
}

func (p *ImageProcessor) needsResize(width, height int) bool {
	return (p.config.MaxWidth > 0 && width > p.config.MaxWidth) ||
		(p.config.MaxHeight > 0 && height > p.config.MaxHeight)
}

// resize 按比例缩放到限制范围内
func (p *ImageProcessor) resize(src image.Image) (ImageData, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := 1.0
	if p.config.MaxWidth > 0 && w > p.config.MaxWidth {
		scale = float64(p.config.MaxWidth) / float64(w)
	}
	if p.config.MaxHeight > 0 && h > p.config.MaxHeight {
		if s := float64(p.config.MaxHeight) / float64(h); s < scale {
			scale = s
		}
	}
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.config.JPEGQuality}); err != nil {
		return ImageData{}, fmt.Errorf("重新编码图片失败: %w", err)
	}

	return ImageData{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  nw,
		Height: nh,
	}, nil
}

// GetMetrics 获取处理统计信息
func (p *ImageProcessor) GetMetrics() ImageMetrics {
	return ImageMetrics{
		TotalProcessed:    atomic.LoadInt64(&p.metrics.TotalProcessed),
		Resized:           atomic.LoadInt64(&p.metrics.Resized),
		FailedValidations: atomic.LoadInt64(&p.metrics.FailedValidations),
		FailedDecodes:     atomic.LoadInt64(&p.metrics.FailedDecodes),
	}
}
