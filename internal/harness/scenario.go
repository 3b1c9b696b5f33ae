package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/boardsync/internal/reconcile"
)

// Scenario defines a convergence scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description says which merge behaviour the scenario pins down.
	Description string `yaml:"description"`

	// Local is the merging replica's scene in display order.
	Local []RecordSpec `yaml:"local"`

	// Remote is the incoming batch in the sender's display order.
	Remote []RecordSpec `yaml:"remote"`

	// Edit maps local record ids to an edit kind ("dragging", ...).
	Edit map[string]string `yaml:"edit,omitempty"`

	// Expect holds the scenario-specific assertions.
	Expect *Expect `yaml:"expect,omitempty"`

	// SkipChecks names automatic checks to leave out.
	SkipChecks []string `yaml:"skip_checks,omitempty"`
}

// Expect holds assertions on the merged scene. Every field is optional.
type Expect struct {
	// Order is the exact id order of the output.
	Order []string `yaml:"order,omitempty"`

	// Keys is the exact key sequence of the output.
	Keys []string `yaml:"keys,omitempty"`

	// Versions maps ids to the version that must survive.
	Versions map[string]int64 `yaml:"versions,omitempty"`

	// Deleted lists ids that must be tombstones. Ids not listed must not be.
	Deleted []string `yaml:"deleted,omitempty"`

	// Protected is the number of ids kept only by the edit context.
	Protected *int `yaml:"protected,omitempty"`
}

// RecordSpec describes one input record.
type RecordSpec struct {
	ID        string
	Version   int64
	Nonce     int64
	Key       string
	Deleted   bool
	Payload   map[string]any
	Shorthand bool
}

var recordSpecFields = map[string]bool{
	"id": true, "version": true, "nonce": true, "key": true, "deleted": true, "payload": true,
}

// UnmarshalYAML accepts "A", "A:2" or a mapping with id, version, nonce,
// key, deleted and payload. Unknown mapping keys are rejected.
func (r *RecordSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		spec, err := parseShorthand(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*r = spec
		return nil

	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			k := node.Content[i].Value
			if !recordSpecFields[k] {
				return fmt.Errorf("line %d: field %s not found in record", node.Content[i].Line, k)
			}
		}
		var raw struct {
			ID      string         `yaml:"id"`
			Version int64          `yaml:"version"`
			Nonce   *int64         `yaml:"nonce"`
			Key     string         `yaml:"key"`
			Deleted bool           `yaml:"deleted"`
			Payload map[string]any `yaml:"payload"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		if raw.ID == "" {
			return fmt.Errorf("line %d: record id is required", node.Line)
		}
		*r = RecordSpec{
			ID:      raw.ID,
			Version: raw.Version,
			Nonce:   1,
			Key:     raw.Key,
			Deleted: raw.Deleted,
			Payload: raw.Payload,
		}
		if raw.Nonce != nil {
			r.Nonce = *raw.Nonce
		}
		return nil
	}
	return fmt.Errorf("line %d: record must be a string or a mapping", node.Line)
}

// uid identifies a shorthand record across sides.
func (r RecordSpec) uid() string {
	return r.ID + ":" + strconv.FormatInt(r.Version, 10)
}

func parseShorthand(s string) (RecordSpec, error) {
	spec := RecordSpec{ID: s, Nonce: 1, Shorthand: true}
	if id, v, found := strings.Cut(s, ":"); found {
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return RecordSpec{}, fmt.Errorf("record %q: bad version: %w", s, err)
		}
		spec.ID, spec.Version = id, version
	}
	if spec.ID == "" {
		return RecordSpec{}, fmt.Errorf("record %q: id is required", s)
	}
	return spec, nil
}

// Automatic check names.
const (
	CheckValidOrder  = "valid_order"
	CheckUnion       = "union"
	CheckConverge    = "converge"
	CheckRereconcile = "rereconcile"
)

var knownChecks = map[string]bool{
	CheckValidOrder:  true,
	CheckUnion:       true,
	CheckConverge:    true,
	CheckRereconcile: true,
}

// LoadScenario reads one scenario file. Unknown keys are errors so a typo
// never silently drops an expectation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario rejects scenarios the runner cannot interpret.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Local) == 0 && len(s.Remote) == 0 {
		return fmt.Errorf("at least one of local or remote must be non-empty")
	}

	for id, kind := range s.Edit {
		if _, ok := reconcile.ParseEditKind(kind); !ok {
			return fmt.Errorf("edit[%s]: unknown edit kind %q", id, kind)
		}
	}

	for i, name := range s.SkipChecks {
		if !knownChecks[name] {
			return fmt.Errorf("skip_checks[%d]: unknown check %q", i, name)
		}
	}

	if s.Expect != nil && s.Expect.Protected != nil && *s.Expect.Protected < 0 {
		return fmt.Errorf("expect.protected must be non-negative")
	}

	return nil
}

// editContext converts the YAML edit map. validateScenario has already
// rejected unknown kinds.
func (s *Scenario) editContext() reconcile.EditContext {
	if len(s.Edit) == 0 {
		return nil
	}
	edit := make(reconcile.EditContext, len(s.Edit))
	for id, name := range s.Edit {
		kind, _ := reconcile.ParseEditKind(name)
		edit[id] = kind
	}
	return edit
}

func (s *Scenario) skips(check string) bool {
	for _, name := range s.SkipChecks {
		if name == check {
			return true
		}
	}
	return false
}
