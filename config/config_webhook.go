package config

// Webhook Webhook
type Webhook struct {
	// 支持的变量 #{ip}=新的IP地址,
	// #{domain}=完整域名,
	// #{recordType}=A 或 AAAA,
	// #{result}=更新结果: UnChanged Failure Success
	URL string `toml:"url" mapstructure:"url" yaml:"url" json:"url"`
	// 如 RequestBody 为空则为 GET 请求，否则为 POST 请求。支持的变量同上
	RequestBody string `toml:"body" mapstructure:"body" yaml:"body" json:"body"`
	// 一行一个Header, 如：Authorization: Bearer API_KEY
	Headers string `toml:"headers" mapstructure:"headers" yaml:"headers" json:"headers"`
}
