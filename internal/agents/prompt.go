package agents

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/famano/gpt-worker/internal/config"
)

var (
	plannerUserTmpl  = template.Must(template.New("planner").Parse(config.UserPromptPlanner))
	workerSystemTmpl = template.Must(template.New("worker_system").Parse(config.SystemPromptWorker))
	workerUserTmpl   = template.Must(template.New("worker").Parse(config.UserPromptWorker))
)

type promptData struct {
	Root    string
	Order   string
	Summary string
	Tasks   string
	Listing string
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}
