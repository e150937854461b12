package dialogue

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestUserPrompt(t *testing.T) {
	got, err := UserPrompt("ASH:\nHello.")
	if err != nil {
		t.Fatalf("UserPrompt() error = %v", err)
	}
	if got != "Here is the text: ASH:\nHello." {
		t.Errorf("UserPrompt() = %q", got)
	}
	if !strings.Contains(SystemPrompt(), "lineId") {
		t.Error("system prompt should describe the line fields")
	}
}

func TestPromptsCompile(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cp, err := Prompts{}.Compile()
		if err != nil {
			t.Fatal(err)
		}
		if cp.System() != SystemPrompt() {
			t.Error("expected default system prompt")
		}
	})

	t.Run("override", func(t *testing.T) {
		cp, err := Prompts{System: "Be brief.", User: "TEXT<<{{.Text}}>>"}.Compile()
		if err != nil {
			t.Fatal(err)
		}
		got, err := cp.User("hi")
		if err != nil {
			t.Fatal(err)
		}
		if got != "TEXT<<hi>>" || cp.System() != "Be brief." {
			t.Errorf("got system %q user %q", cp.System(), got)
		}
	})

	t.Run("user override must reference text", func(t *testing.T) {
		if _, err := (Prompts{User: "no placeholder"}).Compile(); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad template", func(t *testing.T) {
		if _, err := (Prompts{User: "{{.Text"}).Compile(); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestBuildRequest(t *testing.T) {
	req, err := BuildRequest("ASH:\nHello.", RequestOptions{Model: "gpt-4o-mini", Temperature: 0.1, MaxTokens: 512})
	if err != nil {
		t.Fatal(err)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	if req.Model != "gpt-4o-mini" || req.MaxTokens != 512 {
		t.Errorf("options not applied: %+v", req)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_schema" {
		t.Fatalf("unexpected response format: %+v", req.ResponseFormat)
	}

	var spec struct {
		Name   string         `json:"name"`
		Strict bool           `json:"strict"`
		Schema map[string]any `json:"schema"`
	}
	if err := json.Unmarshal(req.ResponseFormat.JSONSchema, &spec); err != nil {
		t.Fatal(err)
	}
	if spec.Name != SchemaName || !spec.Strict {
		t.Errorf("unexpected schema header: %+v", spec)
	}
	if spec.Schema["additionalProperties"] != false {
		t.Error("top-level schema must forbid additional properties")
	}
}

func TestParseLines(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []Line
		wantErr bool
	}{
		{
			name: "well formed",
			raw:  `{"lines":[{"lineId":"L1","order":1,"character":"ASH","text":"Hello."}]}`,
			want: []Line{{LineID: "L1", Order: 1, Character: "ASH", Text: "Hello."}},
		},
		{name: "lines missing", raw: `{}`, want: []Line{}},
		{name: "lines not array", raw: `{"lines":"nope"}`, want: []Line{}},
		{name: "lines null", raw: `{"lines":null}`, want: []Line{}},
		{name: "top-level array", raw: `[{"character":"ASH"}]`, want: []Line{}},
		{
			name: "wrong field types",
			raw:  `{"lines":[{"character":5,"text":null}]}`,
			want: []Line{{}},
		},
		{
			name: "non-object element kept empty",
			raw:  `{"lines":["oops",{"character":"B","text":"x"}]}`,
			want: []Line{{}, {Character: "B", Text: "x"}},
		},
		{name: "invalid json", raw: `{"lines":[`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLines(json.RawMessage(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("expected ErrMalformed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLines() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecodeLines(t *testing.T) {
	lines, err := DecodeLines("```json\n{\"lines\":[{\"lineId\":\"L1\",\"order\":1,\"character\":\"ASH\",\"text\":\"Hi\"}]}\n```")
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0].Character != "ASH" {
		t.Errorf("unexpected lines: %+v", lines)
	}

	if _, err := DecodeLines("I can't help with that."); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(json.RawMessage(`{"lines":[{"lineId":"L1","order":1,"character":"ASH","text":"Hi"}]}`)); err != nil {
		t.Errorf("Validate(valid) = %v", err)
	}
	if err := Validate(json.RawMessage(`{"lines":[{"character":"ASH","text":"Hi"}]}`)); err == nil {
		t.Error("expected missing fields to fail validation")
	}
	if err := Validate(json.RawMessage(`{"lines":[],"note":"x"}`)); err == nil {
		t.Error("expected additional property to fail validation")
	}
}
