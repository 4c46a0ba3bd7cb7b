package export

import (
	"encoding/json"
	"time"
)

// JSONExporter renders ExportData as structured JSON.
type JSONExporter struct{}

type jsonOutput struct {
	Workspace   string          `json:"workspace"`
	GeneratedAt time.Time       `json:"generated_at"`
	Totals      jsonTotals      `json:"totals"`
	Files       []jsonFile      `json:"files"`
	Rules       []string        `json:"rules"`
	Ingestions  []jsonIngestion `json:"ingestions"`
}

type jsonTotals struct {
	Files   int `json:"files"`
	Records int `json:"records"`
	Rules   int `json:"rules"`
}

type jsonFile struct {
	Name    string `json:"name"`
	OnDisk  bool   `json:"on_disk"`
	Records int    `json:"records"`
}

type jsonIngestion struct {
	Source    string    `json:"source"`
	MimeType  string    `json:"mime_type,omitempty"`
	Chunks    int       `json:"chunks"`
	Stored    int       `json:"stored"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (e *JSONExporter) Export(data ExportData) (string, error) {
	out := jsonOutput{
		Workspace:   data.Workspace,
		GeneratedAt: data.GeneratedAt,
		Totals: jsonTotals{
			Files:   len(data.Files),
			Records: data.TotalRecords(),
			Rules:   len(data.Rules),
		},
		Files:      []jsonFile{},
		Rules:      data.Rules,
		Ingestions: []jsonIngestion{},
	}
	if out.Rules == nil {
		out.Rules = []string{}
	}
	for _, f := range data.Files {
		out.Files = append(out.Files, jsonFile{Name: f.Name, OnDisk: f.OnDisk, Records: f.Records})
	}
	for _, in := range data.Ingestions {
		out.Ingestions = append(out.Ingestions, jsonIngestion{
			Source:    in.Source,
			MimeType:  in.MimeType,
			Chunks:    in.Chunks,
			Stored:    in.Stored,
			Error:     in.Error,
			CreatedAt: in.CreatedAt,
		})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
