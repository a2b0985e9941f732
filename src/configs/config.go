package configs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 主配置结构
type Config struct {
	Log struct {
		LogLevel string `yaml:"log_level"`
		LogDir   string `yaml:"log_dir"`
		LogFile  string `yaml:"log_file"`
	} `yaml:"log"`

	Web struct {
		IP          string   `yaml:"ip"`
		Port        int      `yaml:"port"`
		AllowOrigin []string `yaml:"allow_origins"` // 为空时允许所有来源
	} `yaml:"web"`

	SelectedModule map[string]string `yaml:"selected_module"`

	VLLLM map[string]VLLMConfig `yaml:"VLLLM"`
}

// SecurityConfig 图片安全配置结构
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`   // 最大文件大小（字节）
	MaxPixels      int64    `yaml:"max_pixels"`      // 最大像素数量
	MaxWidth       int      `yaml:"max_width"`       // 超过该宽度时缩放
	MaxHeight      int      `yaml:"max_height"`      // 超过该高度时缩放
	AllowedFormats []string `yaml:"allowed_formats"` // 允许的文件扩展名
	JPEGQuality    int      `yaml:"jpeg_quality"`    // 缩放后重新编码的质量
}

// VLLMConfig VLLLM配置结构（视觉语言大模型）
type VLLMConfig struct {
	Type        string                 `yaml:"type"`        // gemini / openai / ollama
	ModelName   string                 `yaml:"model_name"`  // 模型名称，使用支持视觉的模型
	BaseURL     string                 `yaml:"url"`         // API地址
	APIKey      string                 `yaml:"api_key"`     // API密钥
	Temperature float64                `yaml:"temperature"` // 温度参数
	MaxTokens   int                    `yaml:"max_tokens"`  // 最大输出令牌数
	TopP        float64                `yaml:"top_p"`       // TopP参数
	TopK        int                    `yaml:"top_k"`       // TopK参数
	Timeout     string                 `yaml:"timeout"`     // 单次调用超时，如 60s
	Security    SecurityConfig         `yaml:"security"`    // 图片安全配置
	Extra       map[string]interface{} `yaml:",inline"`     // 额外配置
}

// 默认值，与原服务的生成参数保持一致
const (
	DefaultPort        = 5000
	DefaultTemperature = 1.0
	DefaultTopP        = 0.95
	DefaultTopK        = 64
	DefaultMaxTokens   = 8192
	DefaultMaxFileSize = 10 * 1024 * 1024
	DefaultMaxPixels   = 64 * 1024 * 1024
	DefaultMaxSide     = 3072
	DefaultJPEGQuality = 90
)

// LoadConfig 从文件加载配置，优先使用 .config.yaml
func LoadConfig() (*Config, string, error) {
	path := ".config.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = "config.yaml"
	}
	config, err := LoadConfigFrom(path)
	return config, path, err
}

// LoadConfigFrom 读取指定路径的配置文件，${VAR} 会被替换为环境变量
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	config.applyDefaults()

	return config, nil
}

// SelectedVLLM 返回当前选中的VLLLM名称及其配置
func (c *Config) SelectedVLLM() (string, VLLMConfig, error) {
	name := c.SelectedModule["VLLLM"]
	if name == "" {
		return "", VLLMConfig{}, fmt.Errorf("未设置 selected_module.VLLLM")
	}
	vc, ok := c.VLLLM[name]
	if !ok {
		return name, VLLMConfig{}, fmt.Errorf("找不到VLLLM配置: %s", name)
	}
	return name, vc, nil
}

func (c *Config) applyDefaults() {
	if c.Log.LogDir == "" {
		c.Log.LogDir = "logs"
	}
	if c.Log.LogFile == "" {
		c.Log.LogFile = "server"
	}
	if c.Log.LogLevel == "" {
		c.Log.LogLevel = "info"
	}
	if c.Web.IP == "" {
		c.Web.IP = "0.0.0.0"
	}
	if c.Web.Port == 0 {
		c.Web.Port = DefaultPort
	}

	for name, vc := range c.VLLLM {
		vc.ApplyDefaults()
		c.VLLLM[name] = vc
	}
}

// ApplyDefaults 为未填写的生成参数和安全限制补充默认值
func (vc *VLLMConfig) ApplyDefaults() {
	if vc.Temperature == 0 {
		vc.Temperature = DefaultTemperature
	}
	if vc.TopP == 0 {
		vc.TopP = DefaultTopP
	}
	if vc.TopK == 0 {
		vc.TopK = DefaultTopK
	}
	if vc.MaxTokens == 0 {
		vc.MaxTokens = DefaultMaxTokens
	}

	s := &vc.Security
	if s.MaxFileSize == 0 {
		s.MaxFileSize = DefaultMaxFileSize
	}
	if s.MaxPixels == 0 {
		s.MaxPixels = DefaultMaxPixels
	}
	if s.MaxWidth == 0 {
		s.MaxWidth = DefaultMaxSide
	}
	if s.MaxHeight == 0 {
		s.MaxHeight = DefaultMaxSide
	}
	if len(s.AllowedFormats) == 0 {
		s.AllowedFormats = []string{"png", "jpg", "jpeg"}
	}
	if s.JPEGQuality == 0 {
		s.JPEGQuality = DefaultJPEGQuality
	}
}
