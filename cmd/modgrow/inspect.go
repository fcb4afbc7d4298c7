package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Faultbox/modgrow/internal/mesh"
	"github.com/Faultbox/modgrow/internal/toolbox"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List toolbox modules and their poles",
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	tb, err := toolbox.Load(cfg.Toolbox.Path)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tTYPE\tPIECES\tGLUEINGS\tVERTICES\tFACES\tPOLES")
	for _, e := range tb.Entries() {
		m, err := tb.Prototype(e.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			e.Name, e.Shape.Kind, e.Type, e.Pieces, e.Glueings,
			m.NumVertices(), m.NumFaces(), poleSignature(m))
	}
	return w.Flush()
}

// poleSignature lists pole valences with their counts, e.g. "3x2 5x1".
func poleSignature(m *mesh.Mesh) string {
	counts := make(map[int]int)
	for _, p := range m.Poles() {
		counts[m.Valence(p)]++
	}
	if len(counts) == 0 {
		return "-"
	}
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%dx%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}
