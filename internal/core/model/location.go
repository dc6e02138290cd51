package model

// InstanceLocation 定位到的实例根路径
// BaseURL 总以 "/" 结尾；MountPrefix 为 pad 路由前缀，常见为 "p/"，旧部署为空
type InstanceLocation struct {
	BaseURL     string `json:"base_url"`
	MountPrefix string `json:"mount_prefix,omitempty"`
}

// URL 拼接实例内的相对路径
func (l InstanceLocation) URL(path string) string {
	return l.BaseURL + path
}

// PadURL 指定 pad 的页面地址
func (l InstanceLocation) PadURL(padID string) string {
	return l.BaseURL + l.MountPrefix + padID
}
