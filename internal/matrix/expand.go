// Package matrix expands a job's declared build matrix into concrete cells.
//
// Expansion is a pure function over the declared data: no side effects, no
// clocks, no randomness. Axes and variants are enumerated in declaration
// order, so cell names and dispatch order are reproducible across runs with
// identical input. Expansion never fails on large products; throttling
// oversized matrices is the scheduler's job.
package matrix

import (
	"fmt"
	"strings"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/run"
)

// Expand produces one cell per combination of axis variants, ∏ len(axis)
// cells in total. A job without a matrix expands to a single cell carrying
// no bindings, named after the job itself.
func Expand(job *config.Job) []run.Cell {
	if len(job.Matrix) == 0 {
		return []run.Cell{{
			Job:      job.Name,
			Name:     job.Name,
			Bindings: map[string]string{},
		}}
	}

	combos := combinations(job.Matrix)
	cells := make([]run.Cell, 0, len(combos))
	for i, combo := range combos {
		cells = append(cells, run.Cell{
			Job:      job.Name,
			Name:     cellName(job.Name, combo),
			Bindings: mergeBindings(combo),
			Ordinal:  i,
		})
	}
	return cells
}

// Count returns the number of cells Expand would produce, without building
// them.
func Count(job *config.Job) int {
	if len(job.Matrix) == 0 {
		return 1
	}
	n := 1
	for _, axis := range job.Matrix {
		n *= len(axis.Variants)
	}
	return n
}

// combinations walks the axes left to right, so the rightmost axis varies
// fastest, in the order the variants were written.
func combinations(axes []config.Axis) [][]config.Variant {
	combos := [][]config.Variant{nil}
	for _, axis := range axes {
		next := make([][]config.Variant, 0, len(combos)*len(axis.Variants))
		for _, combo := range combos {
			for _, v := range axis.Variants {
				extended := make([]config.Variant, len(combo), len(combo)+1)
				copy(extended, combo)
				next = append(next, append(extended, v))
			}
		}
		combos = next
	}
	return combos
}

// cellName renders the stable display name, e.g. "Test[linux, py313]".
func cellName(job string, combo []config.Variant) string {
	names := make([]string, len(combo))
	for i, v := range combo {
		names[i] = v.Name
	}
	return fmt.Sprintf("%s[%s]", job, strings.Join(names, ", "))
}

// mergeBindings flattens the combination's variable maps. Later axes win on
// key collisions, mirroring declaration order.
func mergeBindings(combo []config.Variant) map[string]string {
	bindings := make(map[string]string)
	for _, v := range combo {
		for k, val := range v.Vars {
			bindings[k] = val
		}
	}
	return bindings
}
