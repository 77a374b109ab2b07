package ingest

import (
	"fmt"
	"os"
	"path/filepath"
)

// Template file names written by WriteTemplates.
const (
	WBSTemplateFile = "wbs_template.csv"
	DPRTemplateFile = "dpr_template.csv"
)

const wbsTemplate = `task_id,name,duration_days,dependencies,resource
T1,Site clearance,5,,Civil
T2,Excavation,10,T1,Civil
T3,Footings,7,T2,Civil
T4,Columns,10,T3,Structural
T5,Slab,8,T4,Structural
T6,MEP rough-in,12,T4;T5,MEP
T7,Finishes,15,T6,Finishes
`

const dprTemplate = `date,task_id,percent_complete
2025-01-05,T1,100
2025-01-08,T2,30
2025-01-10,T2,50
2025-01-15,T3,20
`

// WriteTemplates writes sample WBS and DPR CSV files into dir and returns
// their paths.
func WriteTemplates(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create template dir: %w", err)
	}
	var paths []string
	for _, tpl := range []struct{ name, body string }{
		{WBSTemplateFile, wbsTemplate},
		{DPRTemplateFile, dprTemplate},
	} {
		name, body := tpl.name, tpl.body
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
