package ui

import "testing"

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")

	t.Setenv("CAUSTIC_DARK_MODE", "1")
	dark := DetectTheme()
	if !dark.IsDark {
		t.Fatalf("expected dark theme when CAUSTIC_DARK_MODE=1")
	}

	t.Setenv("CAUSTIC_DARK_MODE", "")
	light := DetectTheme()
	if light.IsDark {
		t.Fatalf("expected light theme when CAUSTIC_DARK_MODE is unset")
	}
}

func TestDetectTheme_ColorFgBg(t *testing.T) {
	t.Setenv("CAUSTIC_DARK_MODE", "")

	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Fatalf("expected dark theme for black background")
	}

	t.Setenv("COLORFGBG", "0;15")
	if DetectTheme().IsDark {
		t.Fatalf("expected light theme for white background")
	}
}

func TestThemeByName(t *testing.T) {
	if !ThemeByName("dark").IsDark {
		t.Errorf("expected dark theme for %q", "dark")
	}
	if ThemeByName("light").IsDark {
		t.Errorf("expected light theme for %q", "light")
	}

	// Unknown names fall back to detection
	t.Setenv("COLORFGBG", "")
	t.Setenv("CAUSTIC_DARK_MODE", "1")
	if !ThemeByName("solarized").IsDark {
		t.Errorf("expected unknown theme name to fall back to detection")
	}
}
