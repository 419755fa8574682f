package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lutefd/pongboard/internal/client"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/locale"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List the full match history of the signed-in player",
	Args:  cobra.NoArgs,
	RunE:  runRecords,
}

func runRecords(cmd *cobra.Command, args []string) error {
	strings := locale.NewCatalog().Lookup(lang)
	log, err := client.New(serverURL).FetchHistory(cmd.Context(), token)
	if err != nil {
		return fmt.Errorf("fetch records: %w", err)
	}
	if len(log) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), strings.NoRecords)
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Ended", "Match", "Minutes", "Tournament")
	for _, r := range log {
		if err := table.Append(r.EndTime.Local().Format(time.DateTime), r.Line(), minutes(r), tournament(r)); err != nil {
			return fmt.Errorf("append record: %w", err)
		}
	}
	return table.Render()
}

func minutes(r matches.Record) string {
	return strconv.Itoa(int(r.EndTime.Sub(r.StartTime).Round(time.Minute) / time.Minute))
}

func tournament(r matches.Record) string {
	t := r.Tournament
	if t == nil {
		return ""
	}
	if t.Final {
		return fmt.Sprintf("%s R%d (final)", t.Name, t.Round)
	}
	return fmt.Sprintf("%s R%d", t.Name, t.Round)
}
