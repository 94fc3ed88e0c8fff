package main

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/checkgate/internal/registry"
)

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List the registered checks",
	RunE:  runChecks,
}

func runChecks(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	reg, err := registry.Load(cfg)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Group", "Command", "Paths", "Cached"})

	for _, def := range reg.All() {
		cached := ""
		if def.Cache != nil {
			cached = def.Cache.Tool
		}
		t.AppendRow(table.Row{
			def.ID,
			def.Group,
			strings.Join(def.Command, " "),
			strings.Join(def.Paths, ", "),
			cached,
		})
	}
	t.Render()

	return nil
}
