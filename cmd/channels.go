// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/obdstat/pkg/obd"
)

var (
	channelsYAML     bool
	channelsValidate bool
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List the channel catalog",
	Long: `Print every channel of the catalog by page, with its request command,
payload size, formula and saved enabled state.

Use --yaml for a machine-readable export and --validate to check the catalog
for malformed commands, payload sizes and duplicates.`,
	RunE: runChannels,
}

func init() {
	rootCmd.AddCommand(channelsCmd)
	channelsCmd.Flags().BoolVar(&channelsYAML, "yaml", false, "Print the catalog as YAML")
	channelsCmd.Flags().BoolVar(&channelsValidate, "validate", false, "Validate the catalog and exit non-zero on issues")
}

// channelExport is the YAML form of one channel
type channelExport struct {
	Page    int    `yaml:"page"`
	Index   int    `yaml:"index"`
	Label   string `yaml:"label"`
	Command string `yaml:"command"`
	Bytes   int    `yaml:"bytes"`
	Formula string `yaml:"formula"`
	Enabled bool   `yaml:"enabled"`
}

func runChannels(cmd *cobra.Command, args []string) error {
	c := obd.DefaultCatalog()
	store.LoadSensorStates(c)

	if channelsValidate {
		return validateChannels(os.Stdout, obd.DefaultChannels)
	}
	if channelsYAML {
		return writeChannelsYAML(os.Stdout, c)
	}

	pageStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

	for n := 0; n < c.PageCount(); n++ {
		fmt.Println(pageStyle.Render("Page " + obd.FormatPageNumber(n, c.PageCount())))
		fmt.Println(channelTable(c.Page(n)).View())
		fmt.Println()
	}
	return nil
}

// channelTable renders one page as a static table
func channelTable(page obd.Page) table.Model {
	columns := []table.Column{
		{Title: "#", Width: 2},
		{Title: "Channel", Width: 34},
		{Title: "Cmd", Width: 4},
		{Title: "Bytes", Width: 5},
		{Title: "Formula", Width: 22},
		{Title: "State", Width: 5},
	}

	rows := make([]table.Row, 0, page.Len())
	for i, ch := range page.Channels {
		state := "on"
		if !ch.Enabled {
			state = "off"
		}
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			strings.TrimSuffix(ch.Label, ":"),
			ch.Command,
			strconv.Itoa(ch.Bytes),
			ch.Formula.String(),
			state,
		})
	}

	styles := table.DefaultStyles()
	styles.Selected = lipgloss.NewStyle()

	return table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(page.Len()+1),
		table.WithFocused(false),
		table.WithStyles(styles),
	)
}

func writeChannelsYAML(w io.Writer, c *obd.Catalog) error {
	out := make([]channelExport, 0, c.Len())
	for _, ch := range c.Channels() {
		out = append(out, channelExport{
			Page:    ch.Index/obd.ChannelsPerPage + 1,
			Index:   ch.Index,
			Label:   strings.TrimSuffix(ch.Label, ":"),
			Command: ch.Command,
			Bytes:   ch.Bytes,
			Formula: ch.Formula.String(),
			Enabled: ch.Enabled,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"channels": out}); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return enc.Close()
}

func validateChannels(w io.Writer, specs []obd.ChannelSpec) error {
	issues := obd.ValidateCatalog(specs)
	if len(issues) == 0 {
		fmt.Fprintf(w, "%d channels OK\n", len(specs))
		return nil
	}

	for i, issue := range issues {
		fmt.Fprintf(w, "Issue %d: %s\n", i+1, issue.Error())
	}
	return fmt.Errorf("catalog has %d issues", len(issues))
}
