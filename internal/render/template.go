package render

import (
	"bytes"
	"fmt"
	"html/template"
)

// Document is one page laid out as a PDF: a heading and a single paragraph.
type Document struct {
	Title string
	Text  string
}

var pageTemplate = template.Must(template.New("page").Parse(`<html>
    <head>
        <meta charset="utf-8">
        <style>
            body {
                font-family: Arial, sans-serif;
                line-height: 1.6;
            }
            h1 {
                text-align: center;
                color: #4CAF50;
            }
            p {
                margin-bottom: 20px;
            }
        </style>
    </head>
    <body>
        <h1>{{.Title}}</h1>
        <p>{{.Text}}</p>
    </body>
</html>
`))

// HTML fills the page template. Title and text are escaped.
func HTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	return buf.Bytes(), nil
}
