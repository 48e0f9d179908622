package studio_test

import (
	"encoding/json"
	"testing"

	"studio-go/internal/studio"
)

func TestSanitizeProject(t *testing.T) {
	t.Run("strips binary media, preserves siblings", func(t *testing.T) {
		p := &studio.Project{
			ID: "p1",
			Script: json.RawMessage(`{
				"narration": {"__binary__": true, "sampleRate": 44100, "data": "AAAA"},
				"text": "hello world",
				"duration": 12.5
			}`),
		}

		got := studio.SanitizeProject(p)

		var script map[string]any
		if err := json.Unmarshal(got.Script, &script); err != nil {
			t.Fatalf("sanitized script not valid JSON: %v", err)
		}
		if _, ok := script["narration"]; ok {
			t.Error("binary payload survived sanitization")
		}
		if script["text"] != "hello world" || script["duration"] != 12.5 {
			t.Errorf("sibling fields altered: %v", script)
		}
	})

	t.Run("arrays drop stripped elements instead of keeping slots", func(t *testing.T) {
		p := &studio.Project{
			ID: "p1",
			Config: json.RawMessage(`{
				"tracks": [
					{"name": "voice"},
					{"__binary__": true, "data": "AAAA"},
					{"name": "music"}
				]
			}`),
		}

		got := studio.SanitizeProject(p)

		var cfg struct {
			Tracks []map[string]any `json:"tracks"`
		}
		if err := json.Unmarshal(got.Config, &cfg); err != nil {
			t.Fatalf("sanitized config not valid JSON: %v", err)
		}
		if len(cfg.Tracks) != 2 {
			t.Fatalf("tracks = %d entries, want 2 with no empty slot", len(cfg.Tracks))
		}
		if cfg.Tracks[0]["name"] != "voice" || cfg.Tracks[1]["name"] != "music" {
			t.Errorf("surviving elements reordered or altered: %v", cfg.Tracks)
		}
	})

	t.Run("strips nested binary media", func(t *testing.T) {
		p := &studio.Project{
			ID:     "p1",
			Script: json.RawMessage(`{"scenes":[{"art":{"__binary__":true},"caption":"intro"}]}`),
		}

		got := studio.SanitizeProject(p)

		var script struct {
			Scenes []map[string]any `json:"scenes"`
		}
		json.Unmarshal(got.Script, &script)
		if _, ok := script.Scenes[0]["art"]; ok {
			t.Error("nested binary payload survived")
		}
		if script.Scenes[0]["caption"] != "intro" {
			t.Error("sibling of nested binary payload altered")
		}
	})

	t.Run("clean payloads round-trip byte for byte", func(t *testing.T) {
		raw := `{"b":1,"a":[2,3],"c":{"d":null}}`
		p := &studio.Project{ID: "p1", Config: json.RawMessage(raw)}

		got := studio.SanitizeProject(p)
		if string(got.Config) != raw {
			t.Errorf("clean payload re-encoded: %s, want untouched %s", got.Config, raw)
		}
	})

	t.Run("whole payload that is binary becomes empty", func(t *testing.T) {
		p := &studio.Project{ID: "p1", Script: json.RawMessage(`{"__binary__":true,"data":"AAAA"}`)}

		got := studio.SanitizeProject(p)
		if len(got.Script) != 0 {
			t.Errorf("Script = %s, want removed entirely", got.Script)
		}
	})

	t.Run("does not mutate the input project", func(t *testing.T) {
		raw := `{"x":{"__binary__":true}}`
		p := &studio.Project{ID: "p1", Config: json.RawMessage(raw)}

		studio.SanitizeProject(p)
		if string(p.Config) != raw {
			t.Errorf("input mutated: %s", p.Config)
		}
	})
}
