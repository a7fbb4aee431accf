package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/memindex/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory",
		Long: "Store a typed memory. Content can be a positional arg or piped via stdin.\n" +
			"Type-specific fields are given with --field name=value, e.g.\n" +
			"  memindex put -t preferences \"prefers dark mode\" --field category=ui --field key=theme --field value=dark",
		Run: runPut,
	}

	cmd.Flags().StringP("type", "t", string(model.TypePreferences), "Type: preferences, facts, context, behavior")
	cmd.Flags().StringArray("field", nil, "Field as name=value (repeatable)")
	cmd.Flags().StringP("keywords", "k", "", "Comma-separated keywords")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().StringP("priority", "p", "", "Priority: low, medium, high, critical")
	cmd.Flags().String("json", "", "Raw JSON object of fields (merged under --field)")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	fields, _ := cmd.Flags().GetStringArray("field")
	keywords, _ := cmd.Flags().GetString("keywords")
	tags, _ := cmd.Flags().GetString("tags")
	priority, _ := cmd.Flags().GetString("priority")
	rawJSON, _ := cmd.Flags().GetString("json")

	raw := map[string]any{}
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &raw); err != nil {
			exitErr("parse --json", err)
		}
	}
	if content := readContent(args); content != "" {
		raw["content"] = content
	}
	if keywords != "" {
		raw["keywords"] = keywords
	}
	if tags != "" {
		raw["tags"] = tags
	}
	if priority != "" {
		raw["priority"] = priority
	}
	if err := parseFields(raw, fields); err != nil {
		exitErr("put", err)
	}

	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	mem, err := m.CreateMemory(getUser(), model.MemoryType(typ), raw).Unwrap()
	if err != nil {
		exitErr("put", err)
	}
	if err := saveManager(m); err != nil {
		exitErr("save", err)
	}

	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}

// readContent takes content from the positional args, falling back to
// piped stdin.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " "))
	}
	stat, _ := os.Stdin.Stat()
	if stat == nil || stat.Mode()&os.ModeCharDevice != 0 {
		return ""
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}
	return strings.TrimSpace(string(b))
}

// scalarFields hold numbers or booleans; their values are decoded as YAML
// scalars so that "0.8" and "true" arrive typed.
var scalarFields = map[string]bool{
	"confidence": true,
	"strength":   true,
	"frequency":  true,
	"verified":   true,
}

func parseFields(raw map[string]any, fields []string) error {
	for _, f := range fields {
		name, value, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("invalid --field %q (want name=value)", f)
		}
		if !scalarFields[name] {
			raw[name] = value
			continue
		}
		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		raw[name] = v
	}
	return nil
}
