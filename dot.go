// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteDot writes the dependency graph of a pass declaration set in
// Graphviz DOT form: passes are boxes, descriptors are ellipses and edges
// follow the data from producer to consumer, labelled with slot names.
// Optional outputs are drawn dashed.
//
// The output is meant for people and graph viewers, not for parsing.
func WriteDot[C any](w io.Writer, passes []Pass[C]) error {
	g := &graph[C]{passes: passes}
	return writeDot(w, g, nil)
}

// DumpDot returns the output of WriteDot as a string.
func DumpDot[C any](passes []Pass[C]) string {
	var sb strings.Builder
	_ = WriteDot(&sb, passes)
	return sb.String()
}

// WriteDot writes the dependency graph of the current schedule. Scheduled
// passes carry their position, materialized descriptors the number of the
// physical resource backing them, and culled passes are drawn dashed.
// Nothing is written when no schedule is planned.
func (s *Scheduler[C]) WriteDot(w io.Writer) error {
	if s.cur == nil {
		return nil
	}
	return writeDot(w, s.cur.g, s.cur)
}

// writeDot renders g. When p is nil, g is an unresolved declaration set.
func writeDot[C any](w io.Writer, g *graph[C], p *plan[C]) error {
	bw := bufio.NewWriter(w)

	ids := make(map[ResourceInfo[C]]string)
	var infos []ResourceInfo[C]
	id := func(info ResourceInfo[C]) string {
		if s, ok := ids[info]; ok {
			return s
		}
		s := "r" + strconv.Itoa(len(ids))
		ids[info] = s
		infos = append(infos, info)
		return s
	}
	for pi := range g.passes {
		for _, in := range g.passes[pi].Inputs {
			if in.Info != nil {
				id(in.Info)
			}
		}
		for _, out := range g.passes[pi].Outputs {
			if out.Info != nil {
				id(out.Info)
			}
		}
	}

	bw.WriteString("digraph framegraph {\n")
	bw.WriteString("  rankdir=LR;\n")
	bw.WriteString("  node [fontname=\"Helvetica\", fontsize=10];\n")
	bw.WriteString("  edge [fontname=\"Helvetica\", fontsize=9];\n\n")

	for pi := range g.passes {
		pass := &g.passes[pi]
		label := pass.Name
		style := "solid"
		if p != nil {
			if pos := g.position[pi]; pos >= 0 {
				label = fmt.Sprintf("#%d %s", pos, pass.Name)
			} else {
				style = "dashed"
				label += "\\n(culled)"
			}
		}
		fmt.Fprintf(bw, "  p%d [shape=box, style=%s, label=%s];\n", pi, style, quote(label))
	}
	bw.WriteString("\n")

	for _, info := range infos {
		label := fmt.Sprintf("%s\\n%s / %s", info.Name(), info.LogicalFormat(), info.PhysicalFormat())
		style := "solid"
		if p != nil {
			if ph, ok := p.assign[info]; ok {
				label += fmt.Sprintf("\\n[%s #%d]", info.Storage(), p.physicalID(ph))
				if info.Storage() == StoragePooled && p.lt != nil {
					iv := p.lt.span[info]
					label += fmt.Sprintf("\\nlive %d..%d", iv.first, iv.last)
				}
			} else {
				style = "dashed"
			}
		}
		if info.Storage() == StorageNone {
			style += ",bold"
		}
		fmt.Fprintf(bw, "  %s [shape=ellipse, style=%q, label=%s];\n", ids[info], style, quote(label))
	}
	bw.WriteString("\n")

	for pi := range g.passes {
		pass := &g.passes[pi]
		for _, in := range pass.Inputs {
			if in.Info == nil {
				continue
			}
			fmt.Fprintf(bw, "  %s -> p%d [label=%s];\n", ids[in.Info], pi, quote(in.Name))
		}
		for _, out := range pass.Outputs {
			if out.Info == nil {
				continue
			}
			attrs := "label=" + quote(out.Name)
			if out.Use == Optional {
				attrs += ", style=dashed"
			}
			fmt.Fprintf(bw, "  p%d -> %s [%s];\n", pi, ids[out.Info], attrs)
		}
		for _, b := range pass.Bindings {
			fmt.Fprintf(bw, "  // p%d binds %s -> %s\n", pi, b.Input, b.Output)
		}
	}

	bw.WriteString("}\n")
	return bw.Flush()
}

// quote returns s as a DOT string literal. Escaped "\n" sequences already
// in s are kept as DOT line breaks.
func quote(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
