package fingerprint

import "padscan/internal/core/model"

// AssetTable 单个静态文件的摘要表
type AssetTable struct {
	Path   string
	Hashes map[string]model.VersionRange
}

// Tables 一份完整的版本指纹数据
type Tables struct {
	APIVersions map[string]model.VersionRange
	Assets      []AssetTable
}

// LookupAPI 按 API 版本查发布区间
func (t *Tables) LookupAPI(apiVersion string) (model.VersionRange, bool) {
	rg, ok := t.APIVersions[apiVersion]
	return rg, ok
}

// LookupAsset 按文件路径与摘要查发布区间，hash 为空表示文件获取失败
func (t *Tables) LookupAsset(path, hash string) (model.VersionRange, bool) {
	for _, a := range t.Assets {
		if a.Path == path {
			rg, ok := a.Hashes[hash]
			return rg, ok
		}
	}
	return model.VersionRange{}, false
}

// AssetPaths 按表中顺序返回需要探测的静态文件
func (t *Tables) AssetPaths() []string {
	paths := make([]string, 0, len(t.Assets))
	for _, a := range t.Assets {
		paths = append(paths, a.Path)
	}
	return paths
}
