package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/coreman2200/lumanet/internal/pattern"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the built-in patterns and their parameters",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), patternTable(pattern.Builtin()))
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}

func patternTable(r *pattern.Registry) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return cell }).
		Headers("ID", "PATTERN", "#", "PARAM", "TYPE", "RANGE", "DEFAULT")
	for _, p := range r.List() {
		for i, prm := range p.Params {
			id, name := "", ""
			if i == 0 {
				id, name = strconv.Itoa(p.ID), p.Name
			}
			t.Row(id, name, strconv.Itoa(i), prm.Name, prm.Type.String(),
				fmt.Sprintf("%g..%g", prm.Min, prm.Max), fmt.Sprintf("%g", prm.Default))
		}
	}
	return t.String()
}
