package components

import (
	"fmt"
	"html"
	"strings"

	"github.com/goliatone/go-actionform/pkg/form"
)

// WriteAttrs appends attrs in order. True renders the bare key, false and nil
// are skipped. Other values go through format, or fmt.Sprint when format is nil.
func WriteAttrs(b *strings.Builder, attrs form.Attrs, format func(any) string) {
	for _, attr := range attrs {
		key := strings.TrimSpace(attr.Key)
		if key == "" {
			continue
		}
		switch value := attr.Value.(type) {
		case nil:
			continue
		case bool:
			if value {
				b.WriteByte(' ')
				b.WriteString(html.EscapeString(key))
			}
			continue
		}
		b.WriteByte(' ')
		b.WriteString(html.EscapeString(key))
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(formatValue(attr.Value, format)))
		b.WriteByte('"')
	}
}

func formatValue(v any, format func(any) string) string {
	if format != nil {
		return format(v)
	}
	switch value := v.(type) {
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	}
	return fmt.Sprint(v)
}

// WriteOpenTag writes <tag attrs>.
func WriteOpenTag(b *strings.Builder, tag string, attrs form.Attrs, format func(any) string) {
	b.WriteByte('<')
	b.WriteString(tag)
	WriteAttrs(b, attrs, format)
	b.WriteByte('>')
}

// WriteCloseTag writes </tag>.
func WriteCloseTag(b *strings.Builder, tag string) {
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteByte('>')
}

// WriteElement writes <tag attrs>text</tag> with text escaped.
func WriteElement(b *strings.Builder, tag string, attrs form.Attrs, text string) {
	WriteOpenTag(b, tag, attrs, nil)
	b.WriteString(html.EscapeString(text))
	WriteCloseTag(b, tag)
}

// WriteInput writes a void <input> tag.
func WriteInput(b *strings.Builder, attrs form.Attrs, format func(any) string) {
	WriteOpenTag(b, "input", attrs, format)
}
