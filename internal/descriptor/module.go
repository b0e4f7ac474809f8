package descriptor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"text/template"
)

// DefaultClassPath is the import path of the runtime image class.
const DefaultClassPath = "imgset/AdaptiveImage"

// ModuleOptions controls the generated wrapper module.
type ModuleOptions struct {
	// ESModule selects `export default` over `module.exports`.
	ESModule  bool
	ClassPath string
}

var moduleTemplate = template.Must(template.New("module").Funcs(template.FuncMap{
	"json": quote,
	"num":  number,
}).Option("missingkey=error").Parse(`{{if .Options.ESModule -}}
import {AdaptiveImage} from {{json .Options.ClassPath}};

export default new AdaptiveImage({
{{- else -}}
var AdaptiveImage = require({{json .Options.ClassPath}}).AdaptiveImage;

module.exports = new AdaptiveImage({
{{- end}}
  uri: {{json .D.URI}},
  width: {{num .D.Width}},
  height: {{num .D.Height}},
  sources: [
{{- range $i, $s := .D.Sources}}{{if $i}},{{end}}
    {
      srcSet: {{json $s.SrcSet}},
      type: {{json $s.Type}}
    }
{{- end}}
  ]
});
`))

// RenderModule renders d as a JavaScript module exporting an AdaptiveImage.
func RenderModule(opts ModuleOptions, d Descriptor) ([]byte, error) {
	if opts.ClassPath == "" {
		opts.ClassPath = DefaultClassPath
	}

	var buf bytes.Buffer
	err := moduleTemplate.Execute(&buf, struct {
		Options ModuleOptions
		D       Descriptor
	}{opts, d})
	if err != nil {
		return nil, fmt.Errorf("executing module template: %w", err)
	}
	return buf.Bytes(), nil
}

func quote(s string) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
