package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"transgate/internal/model"
	"transgate/internal/pkg/id"
)

// FallbackStore 本地备份目录
// 文件名包含时间戳和随机后缀，并发写入不会冲突
type FallbackStore struct {
	dir string
	now func() time.Time
}

// NewFallbackStore 创建本地备份存储，目录在首次写入时创建
func NewFallbackStore(dir string) *FallbackStore {
	return &FallbackStore{dir: dir, now: time.Now}
}

// Dir 返回备份目录
func (s *FallbackStore) Dir() string { return s.dir }

// Write 把记录写成一个缩进的 JSON 文件，返回文件路径
func (s *FallbackStore) Write(record *model.TranslationRecord) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	name := fmt.Sprintf("translation_%s_%s.json", s.now().Format("20060102_150405"), id.Short(8))
	path := filepath.Join(s.dir, name)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		file.Close()
		os.Remove(path) // 删除写了一半的文件
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close backup file: %w", err)
	}

	return path, nil
}
