package http

import (
	"bytes"
	"html/template"
	"strings"
	"testing"
)

func TestPictureURLOnlyTrustsImageData(t *testing.T) {
	tpl := template.Must(template.New("img").Funcs(funcs).Parse(`<img src="{{pictureURL .}}">`))
	cases := []struct {
		in   string
		want string
	}{
		{"data:image/png;base64,iVBORw0KGgo=", `src="data:image/png;base64,iVBORw0KGgo="`},
		{"https://cdn.example.com/a.png", `src="https://cdn.example.com/a.png"`},
		{"javascript:alert(1)", `src="#ZgotmplZ"`},
		{"data:text/html;base64,PHNjcmlwdD4=", `src="#ZgotmplZ"`},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		if err := tpl.Execute(&buf, tc.in); err != nil {
			t.Fatalf("execute %q: %v", tc.in, err)
		}
		if !strings.Contains(buf.String(), tc.want) {
			t.Fatalf("%q: expected %s, got %s", tc.in, tc.want, buf.String())
		}
	}
}
