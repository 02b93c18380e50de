package run

// Bundle is the structured per-job result exposed to an external reporting
// backend. The core never formats or transmits it; the app hands bundles to
// whatever consumer is wired in (history store, status server).
type Bundle struct {
	RunID   string       `json:"runId"`
	Job     string       `json:"job"`
	Outcome string       `json:"outcome"`
	Cells   []BundleCell `json:"cells"`
}

// BundleCell is the cell-level detail of a Bundle: the matrix bindings the
// cell ran under plus the machine-readable result references its steps
// publish (file paths, report URLs; opaque to the core). Cell detail is
// never collapsed into the job summary.
type BundleCell struct {
	Name       string            `json:"name"`
	Outcome    string            `json:"outcome"`
	Bindings   map[string]string `json:"bindings,omitempty"`
	ResultRefs []string          `json:"resultRefs,omitempty"`
}

// Bundles converts a finished run into one bundle per job. resultRefs maps a
// job name to the result references its configuration declares.
func (r *PipelineRun) Bundles(resultRefs map[string][]string) []Bundle {
	bundles := make([]Bundle, 0, len(r.Jobs))
	for _, j := range r.Jobs {
		b := Bundle{
			RunID:   r.ID,
			Job:     j.Job,
			Outcome: j.Outcome.String(),
		}
		for _, c := range j.Cells {
			b.Cells = append(b.Cells, BundleCell{
				Name:       c.Cell.Name,
				Outcome:    c.Outcome.String(),
				Bindings:   c.Cell.Bindings,
				ResultRefs: resultRefs[j.Job],
			})
		}
		bundles = append(bundles, b)
	}
	return bundles
}
