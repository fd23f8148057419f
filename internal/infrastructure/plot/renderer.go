package plot

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/weightwatch/core/internal/domain/entities"
)

//go:embed templates/weight.gp
var defaultTemplate string

// tokenPattern matches any {{token}} placeholder left in a script.
var tokenPattern = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// ScriptRenderer substitutes render parameters into a gnuplot script
// template. Recognized tokens: name, output, date_start, date_end, yrange,
// weight_start, weight_end. The weight tokens only receive values for an
// explicit range, so a template that references them cannot be rendered
// with auto bounds.
type ScriptRenderer struct {
	template string
}

// NewScriptRenderer returns a renderer over the built-in template.
func NewScriptRenderer() *ScriptRenderer {
	return &ScriptRenderer{template: defaultTemplate}
}

// NewScriptRendererWithTemplate returns a renderer over a custom template.
func NewScriptRendererWithTemplate(template string) *ScriptRenderer {
	return &ScriptRenderer{template: template}
}

// Render produces a fully substituted script. Any placeholder left without
// a value is a substitution error, never silently passed through.
func (r *ScriptRenderer) Render(params entities.RenderParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	values := map[string]string{
		"name":       params.DataFile,
		"output":     params.OutputFile,
		"date_start": params.DateStart,
		"date_end":   params.DateEnd,
		"yrange":     params.YRange.Clause(),
	}
	if !params.YRange.Auto {
		values["weight_start"] = strconv.FormatFloat(params.YRange.Start, 'f', -1, 64)
		values["weight_end"] = strconv.FormatFloat(params.YRange.End, 'f', -1, 64)
	}

	script := r.template
	for token, value := range values {
		script = strings.ReplaceAll(script, "{{"+token+"}}", value)
	}

	if leftover := tokenPattern.FindString(script); leftover != "" {
		return "", fmt.Errorf("%w: no value for %s", entities.ErrTemplateSubstitution, leftover)
	}

	return script, nil
}
