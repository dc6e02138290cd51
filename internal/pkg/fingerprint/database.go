/**
 * 指纹数据库
 * @description: 持有当前生效的指纹表，支持运行中热替换
 */

package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"sync"

	"padscan/internal/core/model"
)

// Database 可热加载的指纹表
type Database struct {
	tables *Tables
	mu     sync.RWMutex
}

// NewDatabase 创建数据库，tables 为空时使用内置数据
func NewDatabase(tables *Tables) *Database {
	if tables == nil {
		tables = Default()
	}
	return &Database{tables: tables}
}

// Reload 替换整份指纹表，正在进行的扫描继续使用旧快照
func (d *Database) Reload(tables *Tables) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables = tables
}

// ReloadFile 从文件重新加载
func (d *Database) ReloadFile(path string) error {
	t, err := LoadFile(path)
	if err != nil {
		return err
	}
	d.Reload(t)
	return nil
}

// Snapshot 当前生效的指纹表，调用方不得修改
func (d *Database) Snapshot() *Tables {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tables
}

func (d *Database) LookupAPI(apiVersion string) (model.VersionRange, bool) {
	return d.Snapshot().LookupAPI(apiVersion)
}

func (d *Database) LookupAsset(path, hash string) (model.VersionRange, bool) {
	return d.Snapshot().LookupAsset(path, hash)
}

// Digest 静态文件内容摘要，与指纹表的键一致
func Digest(body []byte) string {
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:])
}
