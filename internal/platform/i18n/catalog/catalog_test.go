package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/language"
)

func TestLoadEmbeddedHasExpectedLocales(t *testing.T) {
	bundle, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded catalogs: %v", err)
	}
	if !bundle.HasLocale(BaseLocale) {
		t.Fatalf("expected base locale %s", BaseLocale)
	}
	if !bundle.HasLocale("pt-BR") {
		t.Fatalf("expected locale pt-BR")
	}
	if got := len(bundle.NamespaceMessages("en-US", "notifications")); got == 0 {
		t.Fatalf("expected en-US notifications namespace messages")
	}
}

func TestLocalesDefineTheSameKeys(t *testing.T) {
	bundle, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded catalogs: %v", err)
	}
	base := bundle.LocaleMessages(BaseLocale)
	for _, locale := range bundle.Locales() {
		messages := bundle.LocaleMessages(locale)
		for key := range base {
			if _, ok := messages[key]; !ok {
				t.Errorf("%s missing key %q", locale, key)
			}
		}
		for key := range messages {
			if _, ok := base[key]; !ok {
				t.Errorf("%s has key %q absent from %s", locale, key, BaseLocale)
			}
		}
	}
}

func TestLoadFromFSRejectsCoreKeyOutsideCoreNamespace(t *testing.T) {
	tempDir := t.TempDir()
	mustWriteFile(t, filepath.Join(tempDir, "locales/en-US/web.yaml"), `locale: "en-US"
namespace: "web"
messages:
  "core.bad": "nope"
`)
	mustWriteFile(t, filepath.Join(tempDir, "locales/en-US/core.yaml"), `locale: "en-US"
namespace: "core"
messages:
  "core.good": "ok"
`)

	if _, err := LoadFromFS(os.DirFS(tempDir)); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadFromFSRejectsDuplicateKeysAcrossNamespaces(t *testing.T) {
	tempDir := t.TempDir()
	mustWriteFile(t, filepath.Join(tempDir, "locales/en-US/core.yaml"), `locale: "en-US"
namespace: "core"
messages:
  "a.key": "a"
`)
	mustWriteFile(t, filepath.Join(tempDir, "locales/en-US/web.yaml"), `locale: "en-US"
namespace: "web"
messages:
  "a.key": "b"
`)

	if _, err := LoadFromFS(os.DirFS(tempDir)); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestLoadFromFSRejectsLocaleMismatch(t *testing.T) {
	tempDir := t.TempDir()
	mustWriteFile(t, filepath.Join(tempDir, "locales/en-US/core.yaml"), `locale: "pt-BR"
namespace: "core"
messages:
  "core.x": "x"
`)

	if _, err := LoadFromFS(os.DirFS(tempDir)); err == nil {
		t.Fatal("expected locale mismatch error")
	}
}

func TestMessageFallsBackToBaseLocale(t *testing.T) {
	bundle, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded catalogs: %v", err)
	}
	value, ok := bundle.Message("fr-FR", "notification.breathing.title")
	if !ok || value != "Take a Deep Breath 🌬️" {
		t.Fatalf("fallback message = %q %v", value, ok)
	}
}

func TestMatch(t *testing.T) {
	bundle := Default()

	tests := []struct {
		pref string
		want language.Tag
	}{
		{pref: "pt-BR", want: language.MustParse("pt-BR")},
		{pref: "pt", want: language.MustParse("pt-BR")},
		{pref: "fr-FR, pt;q=0.8", want: language.MustParse("pt-BR")},
		{pref: "de", want: language.MustParse("en-US")},
		{pref: "", want: language.MustParse("en-US")},
	}
	for _, tc := range tests {
		if got := bundle.Match(tc.pref); got != tc.want {
			t.Errorf("Match(%q) = %s, want %s", tc.pref, got, tc.want)
		}
	}
}

func TestPrinterUsesRegisteredCatalog(t *testing.T) {
	_ = Default()
	got := Printer(language.MustParse("pt-BR")).Sprintf("notification.friend_activity.title", "Bob")
	if got != "Bob compartilhou uma novidade" {
		t.Fatalf("printer = %q", got)
	}
}

func mustWriteFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
