package mailer

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template holds a subject and body pair. Both are text/template sources
// rendered with the notification data.
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type Templates struct {
	Assigned      Template `yaml:"assigned"`
	QualityReview Template `yaml:"quality_review"`
}

// AssignedData feeds the assignment notification sent to the responsible
// user when a record lands on their desk.
type AssignedData struct {
	Code string
}

// QualityReviewData feeds the review notification sent to active quality
// team members when a record reaches kalite_incelemesi.
type QualityReviewData struct {
	RecordID int64
}

func DefaultTemplates() Templates {
	return Templates{
		Assigned: Template{
			Subject: "Yeni Uygunsuzluk Atandı: {{.Code}}",
			Body:    "Size yeni bir uygunsuzluk kaydı atandı: {{.Code}}. Lütfen sisteme giriş yapıp kontrol ediniz.",
		},
		QualityReview: Template{
			Subject: "İnceleme Bekleyen Kayıt: {{.RecordID}}",
			Body:    "Kayıt {{.RecordID}} aksiyonları tamamlandı ve kalite incelemesine hazır.",
		},
	}
}

// LoadTemplates reads overrides from a YAML file. A missing path or a blank
// field falls back to the built-in Turkish defaults.
func LoadTemplates(path string) (Templates, error) {
	templates := DefaultTemplates()
	if strings.TrimSpace(path) == "" {
		return templates, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Templates{}, fmt.Errorf("read mail templates: %w", err)
	}

	var loaded Templates
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return Templates{}, fmt.Errorf("parse mail templates: %w", err)
	}

	if strings.TrimSpace(loaded.Assigned.Subject) != "" {
		templates.Assigned.Subject = loaded.Assigned.Subject
	}
	if strings.TrimSpace(loaded.Assigned.Body) != "" {
		templates.Assigned.Body = loaded.Assigned.Body
	}
	if strings.TrimSpace(loaded.QualityReview.Subject) != "" {
		templates.QualityReview.Subject = loaded.QualityReview.Subject
	}
	if strings.TrimSpace(loaded.QualityReview.Body) != "" {
		templates.QualityReview.Body = loaded.QualityReview.Body
	}

	return templates, nil
}

func (t Templates) RenderAssigned(data AssignedData) (subject string, body string, err error) {
	subject, err = render("assigned.subject", t.Assigned.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err = render("assigned.body", t.Assigned.Body, data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func (t Templates) RenderQualityReview(data QualityReviewData) (subject string, body string, err error) {
	subject, err = render("quality_review.subject", t.QualityReview.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err = render("quality_review.body", t.QualityReview.Body, data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func render(name string, source string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
