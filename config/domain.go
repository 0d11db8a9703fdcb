package config

// Domain 域名实体
type Domain struct {
	SubDomain  string `toml:"subdomain" mapstructure:"subdomain" yaml:"subdomain" json:"subdomain"`
	DomainName string `toml:"base" mapstructure:"base" yaml:"base" json:"base"`
}

func (d Domain) String() string {
	if d.SubDomain != "" {
		return d.SubDomain + "." + d.DomainName
	}
	return d.DomainName
}

// GetSubDomain 获得子域名，为空返回@
func (d Domain) GetSubDomain() string {
	if d.SubDomain != "" {
		return d.SubDomain
	}
	return "@"
}
