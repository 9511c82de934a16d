package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"DocVault/internal/config"
)

// withTempConfig возвращает конфиг, у которого токен лежит во временном каталоге,
// чтобы артефакты теста не попадали в домашний каталог.
func withTempConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ServerURL:  serverURL,
		TokenFile:  filepath.Join(dir, "token"),
		AuthSecret: "test-secret",
	}
}

// перехват stdout на время теста
func withStdoutCapture(t *testing.T, fn func()) string {
	t.Helper()
	old := Out
	var buf bytes.Buffer
	Out = &buf
	defer func() { Out = old }()
	fn()
	return buf.String()
}
