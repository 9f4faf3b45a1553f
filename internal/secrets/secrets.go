// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file is one secret: the filename is the key and the trimmed contents
// are the value. Secrets only fill configuration values that are still empty,
// so an explicit config file or environment variable always wins.
//
// Recognized keys: notion-api-token, llm-api-key, wecom-webhook, feishu-webhook.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

// Recognized secret file names.
const (
	NotionAPIToken = "notion-api-token"
	LLMAPIKey      = "llm-api-key"
	WeComWebhook   = "wecom-webhook"
	FeishuWebhook  = "feishu-webhook"
)

// Secrets maps secret names to values.
type Secrets map[string]string

// Load reads all files in dir. A missing directory is not an error and
// yields an empty set. Unreadable files are logged and skipped.
func Load(dir string, logger *zap.Logger) (Secrets, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Names returns the loaded secret names, for logging without values.
func (s Secrets) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	return names
}

// Fill copies secrets into empty credential fields of cfg.
func (s Secrets) Fill(cfg *types.Config) {
	fill := func(dst *string, key string) {
		if strings.TrimSpace(*dst) == "" {
			if v, ok := s[key]; ok {
				*dst = v
			}
		}
	}
	fill(&cfg.Notion.APIToken, NotionAPIToken)
	fill(&cfg.LLM.APIKey, LLMAPIKey)
	fill(&cfg.Notification.WeComWebhook, WeComWebhook)
	fill(&cfg.Notification.FeishuWebhook, FeishuWebhook)
}
