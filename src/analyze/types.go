package analyze

import "car-analyzer-go/src/core/image"

// StatusResponse GET /api/analyze 的状态响应
type StatusResponse struct {
	Status   string             `json:"status"`
	Provider string             `json:"provider"`
	Model    string             `json:"model"`
	Metrics  image.ImageMetrics `json:"metrics"`
}
