package payfast

import (
	"bytes"
	"html/template"
)

var formTmpl = template.Must(template.New("payfast").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Redirecting to payment</title></head>
<body onload="document.forms[0].submit()">
<form action="{{.Action}}" method="post">
{{- range .Fields}}
<input type="hidden" name="{{.Key}}" value="{{.Value}}">
{{- end}}
<noscript><button type="submit">Continue to payment</button></noscript>
</form>
</body>
</html>
`))

// RenderForm returns the auto-submitting HTML page for r.
func RenderForm(r Redirect) ([]byte, error) {
	var buf bytes.Buffer
	if err := formTmpl.Execute(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
