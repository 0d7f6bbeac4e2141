package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"attendance-tracker/backend/internal/client"
)

// loadCredentials 读取本地保存的登录凭证；文件不存在时返回空凭证
func loadCredentials(path string) (client.Credentials, error) {
	var creds client.Credentials
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return creds, nil
	}
	if err != nil {
		return creds, fmt.Errorf("读取凭证文件失败: %w", err)
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("凭证文件格式错误: %w", err)
	}
	return creds, nil
}

// saveCredentials 写入凭证，仅当前用户可读
func saveCredentials(path string, creds client.Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("创建凭证目录失败: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("写入凭证文件失败: %w", err)
	}
	return nil
}

func removeCredentials(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除凭证文件失败: %w", err)
	}
	return nil
}
