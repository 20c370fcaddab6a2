package plugin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drone/drone-xray-junit/report"
)

// Exit codes of the plugin process.
const (
	ExitSuccess          = 0
	ExitConfigError      = 102
	ExitGenerationError  = 103
	ExitMissingIssueKeys = 104
)

var (
	// ErrInvalidConfig is returned for unusable plugin arguments.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrMissingIssueKeys is returned when tests lack a required issue key
	// and FailOnMissingKeys is set.
	ErrMissingIssueKeys = errors.New("missing issue keys")
)

// ExitCode maps an error returned by Exec to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrMissingIssueKeys):
		return ExitMissingIssueKeys
	default:
		return ExitGenerationError
	}
}

// Property represents a static suite property.
type Property struct {
	Name  string
	Value string
}

// Properties is an ordered list of static suite properties, configured as
// "name:value,name2:value2".
type Properties []Property

// Decode implements envconfig.Decoder and keeps the configured order.
func (p *Properties) Decode(value string) error {
	var props Properties
	for _, pair := range strings.Split(value, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		name, val, _ := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("invalid property %q: missing name", pair)
		}
		props = append(props, Property{Name: name, Value: strings.TrimSpace(val)})
	}
	*p = props
	return nil
}

// Report converts the properties for the report model.
func (p Properties) Report() []report.Property {
	if len(p) == 0 {
		return nil
	}
	out := make([]report.Property, 0, len(p))
	for _, prop := range p {
		out = append(out, report.Property{Name: prop.Name, Value: prop.Value})
	}
	return out
}
