package env_mode

import "testing"

func TestParseEnv(t *testing.T) {
	tests := []struct {
		in   string
		want ENV_MODE
	}{
		{"", DevMode},
		{"dev", DevMode},
		{" Production ", ProMode},
		{"prod", ProMode},
		{"testing", TestMode},
		{"staging", DevMode},
	}

	for _, tt := range tests {
		if got := ParseEnv(tt.in); got != tt.want {
			t.Errorf("ParseEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSetMode(t *testing.T) {
	prev := Mode()
	t.Cleanup(func() { SetMode(prev) })

	SetMode(TestMode)
	if got := Mode(); got != TestMode {
		t.Errorf("Mode() = %q, want %q", got, TestMode)
	}
}
