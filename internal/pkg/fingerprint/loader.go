package fingerprint

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"padscan/internal/core/model"
)

//go:embed tables.yaml
var embeddedTables []byte

type rawTables struct {
	APIVersions map[string][2]*string `yaml:"api_versions"`
	Assets      []struct {
		Path   string                `yaml:"path"`
		Hashes map[string][2]*string `yaml:"hashes"`
	} `yaml:"assets"`
}

// Default 内置指纹数据
func Default() *Tables {
	t, err := Parse(embeddedTables)
	if err != nil {
		panic(fmt.Sprintf("embedded fingerprint tables are invalid: %v", err))
	}
	return t
}

// LoadFile 从文件加载指纹数据
func LoadFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 指纹数据，拒绝下界大于上界的行
func Parse(data []byte) (*Tables, error) {
	var raw rawTables
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse tables: %w", err)
	}

	t := &Tables{APIVersions: make(map[string]model.VersionRange, len(raw.APIVersions))}
	for apiVersion, row := range raw.APIVersions {
		rg := toRange(row)
		if !rg.Valid() {
			return nil, fmt.Errorf("api version %s: invalid range %s", apiVersion, rg)
		}
		t.APIVersions[apiVersion] = rg
	}

	for _, a := range raw.Assets {
		if a.Path == "" {
			return nil, fmt.Errorf("asset entry without path")
		}
		table := AssetTable{Path: a.Path, Hashes: make(map[string]model.VersionRange, len(a.Hashes))}
		for hash, row := range a.Hashes {
			rg := toRange(row)
			if !rg.Valid() {
				return nil, fmt.Errorf("asset %s hash %s: invalid range %s", a.Path, hash, rg)
			}
			table.Hashes[hash] = rg
		}
		t.Assets = append(t.Assets, table)
	}
	return t, nil
}

func toRange(row [2]*string) model.VersionRange {
	var rg model.VersionRange
	if row[0] != nil {
		rg.Min = *row[0]
	}
	if row[1] != nil {
		rg.Max = *row[1]
	}
	return rg
}
