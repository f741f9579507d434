//go:build linux

package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"text/template"

	"github.com/tailscale/hujson"
)

// ParseConfigurationError wraps any failure from Load: template rendering
// errors and document decode errors both collapse into this single kind, per
// the original implementation's single Error::ParseConfigurationError
// variant.
type ParseConfigurationError struct {
	msg string
	err error
}

func (e *ParseConfigurationError) Error() string { return e.msg }
func (e *ParseConfigurationError) Unwrap() error  { return e.err }

func newParseError(stage, msg string, err error) *ParseConfigurationError {
	return &ParseConfigurationError{msg: fmt.Sprintf("parse configuration (%s): %s", stage, msg), err: err}
}

var (
	templateOnce sync.Once
	templateBase *template.Template
)

// policyTemplate returns the process-wide template used to render policy
// source text. It is initialized once on first use and never torn down,
// per the design note on the process-wide template engine.
func policyTemplate() *template.Template {
	templateOnce.Do(func() {
		templateBase = template.New("policy").Funcs(template.FuncMap{
			"os_env": osEnvHelper,
		})
	})

	return templateBase
}

// osEnvHelper implements the `os_env` template helper: the named environment
// variable's value, or def when unset.
func osEnvHelper(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}

	return def
}

// Load renders text through the policy template engine, then decodes the
// result as a JSONC policy document. Unknown fields are rejected.
func Load(text string) (*Policy, error) {
	tmpl, err := policyTemplate().Clone()
	if err != nil {
		return nil, newParseError("template", err.Error(), err)
	}

	tmpl, err = tmpl.Parse(text)
	if err != nil {
		return nil, newParseError("template", err.Error(), err)
	}

	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, nil); err != nil {
		return nil, newParseError("template", err.Error(), err)
	}

	standardized, err := hujson.Standardize(rendered.Bytes())
	if err != nil {
		return nil, newParseError("document", err.Error(), err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	var wire wirePolicy
	if err := dec.Decode(&wire); err != nil {
		return nil, newParseError("document", err.Error(), err)
	}

	p := wire.toPolicy()

	if err := p.Validate(); err != nil {
		return nil, newParseError("document", err.Error(), err)
	}

	return p, nil
}
