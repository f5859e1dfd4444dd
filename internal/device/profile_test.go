package device

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfile(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		p, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("LoadProfile: %v", err)
		}
		if p.Width != 320 || p.Height != 240 {
			t.Errorf("default geometry = %dx%d, want 320x240", p.Width, p.Height)
		}
		if p.DeviceID == "" {
			t.Error("default profile must generate a device ID")
		}
	})

	t.Run("parses yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.yaml")
		content := `name: LilyGo T4
device_id: t4-bench
width: 480
height: 320
has_rgb_led: true
supports_mqtt: true
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		p, err := LoadProfile(path)
		if err != nil {
			t.Fatalf("LoadProfile: %v", err)
		}
		if p.Name != "LilyGo T4" || p.Width != 480 || !p.HasRGBLED || !p.SupportsMQTT {
			t.Errorf("unexpected profile: %+v", p)
		}
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.yaml")
		if err := os.WriteFile(path, []byte("width: [nope"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadProfile(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestResolution(t *testing.T) {
	p := &Profile{Width: 480, Height: 320}

	tests := []struct {
		rotation int
		w, h     int
	}{
		{0, 480, 320},
		{90, 320, 480},
		{180, 480, 320},
		{270, 320, 480},
	}
	for _, tc := range tests {
		p.Rotation = tc.rotation
		w, h := p.Resolution()
		if w != tc.w || h != tc.h {
			t.Errorf("rotation %d: got %dx%d, want %dx%d", tc.rotation, w, h, tc.w, tc.h)
		}
	}
}
