package fs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// setTempCfg перенастраивает пользовательский конфиг‑каталог в temp для изоляции тестов.
func setTempCfg(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("APPDATA", dir)
	} else {
		t.Setenv("XDG_CONFIG_HOME", dir)
	}
	return dir
}

func TestAuthFSStore_SaveLoad_Token_TrimsWhitespace(t *testing.T) {
	setTempCfg(t)
	st := AuthFSStore{}
	// Сохранение токена
	if err := st.Save("tok-123\n\n"); err != nil {
		t.Fatalf("save token: %v", err)
	}
	// Дозапишем вручную лишние пробелы в конец файла, чтобы проверить trim
	p, _ := st.tokenPath()
	f, _ := os.OpenFile(p, os.O_APPEND|os.O_WRONLY, 0o600)
	_, _ = f.WriteString("  \r\n")
	_ = f.Close()

	tok, err := st.Load()
	if err != nil {
		t.Fatalf("load token: %v", err)
	}
	if tok != "tok-123" {
		t.Fatalf("token not trimmed, got %q", tok)
	}
}

func TestAuthFSStore_Load_TokenMissingOrEmpty(t *testing.T) {
	setTempCfg(t)
	st := AuthFSStore{}
	// отсутствует файл
	if _, err := st.Load(); err == nil {
		t.Fatalf("expected error for missing token file")
	}
	// пустой файл
	p, _ := st.tokenPath()
	_ = os.MkdirAll(filepath.Dir(p), 0o700)
	_ = os.WriteFile(p, []byte(" \n"), 0o600)
	if _, err := st.Load(); err == nil {
		t.Fatalf("expected error for empty token file")
	}
}

func TestAuthFSStore_ExplicitPathAndClear(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "token")
	st := AuthFSStore{Path: p}
	if err := st.Save("abc"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if tok, err := st.Load(); err != nil || tok != "abc" {
		t.Fatalf("load: %q %v", tok, err)
	}
	if err := st.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := st.Clear(); err != nil {
		t.Fatalf("second clear must be a no-op: %v", err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("token file must be removed")
	}
}

func TestAuthFSStore_SaveEmptyError(t *testing.T) {
	st := AuthFSStore{Path: filepath.Join(t.TempDir(), "token")}
	if err := st.Save("  "); err == nil {
		t.Fatalf("expected error for empty token")
	}
}
