package connector

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode"
)

const worklogBody = `{{with .Description}}{{.}}
{{end}}{{range .TimeRows}}{{hour .ActivityHour}} - {{.Activity}}{{with .Description}} - {{.}}{{end}}
{{end}}Total worked time: {{duration .TotalDurationSecs}}
{{with .User.ExperienceWeightingPercent}}{{if ne . 100}}Experience factor: {{.}}%
{{end}}{{end}}`

func newBodyTemplate() (*template.Template, error) {
	tmpl, err := template.New("worklog").Funcs(template.FuncMap{
		"hour": func(activityHour int) string {
			t, err := TimeRow{ActivityHour: activityHour}.Start()
			if err != nil {
				return fmt.Sprint(activityHour)
			}
			return t.Format("2006-01-02 15:04")
		},
		"duration": func(secs int64) string {
			return (time.Duration(secs) * time.Second).String()
		},
	}).Parse(worklogBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse worklog template: %w", err)
	}
	return tmpl, nil
}

// renderBody renders the worklog text for a time group.
func (c *JiraConnector) renderBody(tg TimeGroup) (string, error) {
	var buf bytes.Buffer
	if err := c.body.Execute(&buf, tg); err != nil {
		return "", fmt.Errorf("failed to render worklog body: %w", err)
	}
	return strings.TrimSpace(stripPictographs(buf.String())), nil
}

// pictographs holds the BMP emoji blocks and joiners.
var pictographs = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200d, Hi: 0x200d, Stride: 1},
		{Lo: 0x20e3, Hi: 0x20e3, Stride: 1},
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1},
		{Lo: 0x2b00, Hi: 0x2bff, Stride: 1},
		{Lo: 0xfe0e, Hi: 0xfe0f, Stride: 1},
	},
}

// stripPictographs removes emoji, which MySQL's utf8 columns reject.
func stripPictographs(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(pictographs, r) {
			return -1
		}
		if r > 0xffff && (unicode.In(r, unicode.So, unicode.Sk, unicode.Cf)) {
			return -1
		}
		return r
	}, s)
}
