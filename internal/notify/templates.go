package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"produce-market/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type orderView struct {
	StoreName   string
	Order       *domain.Order
	StatusLabel string
}

type preOrderView struct {
	StoreName   string
	PreOrder    *domain.PreOrder
	StatusLabel string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func statusLabel(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}
