package image

// ImageData 上传图片数据，只在一次请求内存在
type ImageData struct {
	Filename string // 上传时声明的文件名
	Data     []byte // 原始或缩放后的图片字节
	Format   string // 实际格式：jpeg, png
	Width    int
	Height   int
}

// MimeType 根据实际格式返回MIME类型
func (d ImageData) MimeType() string {
	switch d.Format {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// ValidationResult 图片验证结果
type ValidationResult struct {
	IsValid      bool   // 是否有效
	Extension    string // 文件扩展名（小写，不含点）
	FileSize     int64  // 文件大小
	Error        error  // 错误信息
	SecurityRisk string // 安全风险描述
}

// ImageMetrics 图片处理统计信息
type ImageMetrics struct {
	TotalProcessed    int64 `json:"total_processed"`    // 总处理数量
	Resized           int64 `json:"resized"`            // 缩放次数
	FailedValidations int64 `json:"failed_validations"` // 验证失败次数
	FailedDecodes     int64 `json:"failed_decodes"`     // 解码失败次数
}
