package agentdef

import (
	"testing"

	"gopkg.in/yaml.v3"
)

// validationFixture is a table-driven validation case loaded from YAML
// rather than hand-assembled Go literals, covering the reserved-parameter
// and tool-choice rules declaratively.
type validationFixture struct {
	Name       string   `yaml:"name"`
	ToolNames  []string `yaml:"tool_names"`
	ToolChoice string   `yaml:"tool_choice"`
	WantError  bool     `yaml:"want_error"`
}

const validationFixturesYAML = `
- name: triage
  tool_names: [transfer, lookup]
  tool_choice: ""
  want_error: false
- name: ""
  tool_names: []
  tool_choice: ""
  want_error: true
- name: router
  tool_names: [transfer]
  tool_choice: "nonexistent"
  want_error: true
- name: router
  tool_names: [transfer]
  tool_choice: "transfer"
  want_error: false
- name: dup
  tool_names: [x, x]
  tool_choice: ""
  want_error: true
`

func TestAgentValidateFixtures(t *testing.T) {
	var fixtures []validationFixture
	if err := yaml.Unmarshal([]byte(validationFixturesYAML), &fixtures); err != nil {
		t.Fatalf("unmarshal fixtures: %v", err)
	}

	for _, f := range fixtures {
		tools := make([]Tool, 0, len(f.ToolNames))
		for _, n := range f.ToolNames {
			tools = append(tools, stubTool{name: n})
		}
		agent := &Agent{Name: f.Name, Tools: tools, ToolChoice: ToolChoice(f.ToolChoice)}

		err := agent.Validate()
		if (err != nil) != f.WantError {
			t.Errorf("fixture %+v: Validate() error = %v, want error = %v", f, err, f.WantError)
		}
	}
}
