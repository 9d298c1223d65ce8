package config

import (
	"os"
	"path/filepath"
)

const configTemplate = `# trading-journal configuration

[journal]
# database_path = "~/.config/trading-journal/journal.db"
owner_id = "local"
bootstrap_account_name = "Demo Account"
cascade_delete = true

[subscription]
# trial, basic or premium
tier = "trial"

[logging]
level = "info"
console = true
file = true

[ui]
color_enabled = true
date_format = "2006-01-02"
time_format = "15:04:05"
`

// createTemplateConfig writes a commented config template so a first run
// leaves something editable behind. Defaults still apply when the user
// never touches it.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.WriteFile(path, []byte(configTemplate), 0644)
}
