package ui

import "testing"

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("TODO_DARK_MODE", "1")
	dark := DetectTheme()
	if !dark.IsDark {
		t.Fatalf("expected dark theme when TODO_DARK_MODE=1")
	}

	t.Setenv("TODO_DARK_MODE", "")
	light := DetectTheme()
	if light.IsDark {
		t.Fatalf("expected light theme when TODO_DARK_MODE is unset")
	}

	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Fatalf("expected dark theme for a black terminal background")
	}
}

func TestThemeByName(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("TODO_DARK_MODE", "")

	if !ThemeByName("dark").IsDark {
		t.Error("dark should be dark")
	}
	if ThemeByName("light").IsDark {
		t.Error("light should be light")
	}
	if ThemeByName("auto").IsDark {
		t.Error("auto should detect light here")
	}
}
