package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/marmos91/pdrhub/pkg/debugapi"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Show local repository aggregates",
	RunE: func(cmd *cobra.Command, args []string) error {
		var repo debugapi.RepoResponse
		if err := getJSON("/repo", &repo); err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Field", "Value"})
		table.Append([]string{"State", repo.State})
		table.Append([]string{"Records", strconv.FormatUint(uint64(repo.RecordCount), 10)})
		table.Append([]string{"Size", strconv.FormatUint(uint64(repo.RepositorySize), 10)})
		table.Append([]string{"Largest record", strconv.FormatUint(uint64(repo.LargestRecordSize), 10)})
		table.Append([]string{"Capacity", strconv.FormatUint(uint64(repo.Capacity), 10)})
		table.Append([]string{"Signature", repo.Signature})
		table.Render()
		return nil
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List the repository's live records",
	RunE: func(cmd *cobra.Command, args []string) error {
		var records []debugapi.RecordResponse
		if err := getJSON("/records", &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("repository is empty")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Handle", "Type", "Size"})
		for _, rec := range records {
			table.Append([]string{
				rec.RecordHandle,
				strconv.Itoa(int(rec.PDRType)),
				strconv.FormatUint(uint64(rec.Size), 10),
			})
		}
		table.Render()
		return nil
	},
}

var terminiCmd = &cobra.Command{
	Use:   "termini",
	Short: "List registered termini and their sync state",
	RunE: func(cmd *cobra.Command, args []string) error {
		var termini []debugapi.TerminusResponse
		if err := getJSON("/termini", &termini); err != nil {
			return err
		}

		if len(termini) == 0 {
			fmt.Println("no termini registered")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Slot", "EID", "TID", "State", "Remote records", "Local records", "Signature"})
		for _, t := range termini {
			table.Append([]string{
				strconv.Itoa(t.Slot),
				strconv.Itoa(int(t.EID)),
				strconv.Itoa(int(t.TID)),
				t.State,
				strconv.FormatUint(uint64(t.RemoteRecordCount), 10),
				strconv.FormatUint(uint64(t.LocalRecordCount), 10),
				t.LastSignature,
			})
		}
		table.Render()
		return nil
	},
}
