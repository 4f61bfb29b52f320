package commands

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/marmos91/pdrhub/pkg/pldmevent"
)

var syncYes bool

var syncCmd = &cobra.Command{
	Use:   "sync <eid>",
	Short: "Force a full re-sync of one terminus",
	Long: `sync injects a refresh-entire-repository change event for the given
terminus, making the daemon re-sync it. If the terminus's repository
signature changed since its last sync, the daemon purges and re-fetches
every record it contributed, which discards the consolidated view of the
terminus until the re-fetch completes. If the signature is unchanged, the
consolidated records are kept as they are.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eid, err := strconv.ParseUint(args[0], 0, 8)
		if err != nil {
			return fmt.Errorf("eid must be an 8-bit integer: %w", err)
		}

		if !syncYes {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("Re-sync terminus %d", eid),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				fmt.Println("aborted")
				return nil
			}
		}

		wire, err := pldmevent.Encode(pldmevent.Event{Format: pldmevent.FormatRefreshEntireRepository})
		if err != nil {
			return err
		}

		return postEvent(uint8(eid), wire)
	},
}

func init() {
	syncCmd.Flags().BoolVarP(&syncYes, "yes", "y", false, "skip the confirmation prompt")
}

// postEvent injects a change-event wire payload for eid via the debug
// API.
func postEvent(eid uint8, wire []byte) error {
	url := fmt.Sprintf("%s/termini/%d/events", apiBase, eid)
	resp, err := http.Post(url, "application/octet-stream", bytes.NewReader(wire))
	if err != nil {
		return fmt.Errorf("debug API unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("debug API answered %s: %s", resp.Status, string(body))
	}

	fmt.Println("event applied")
	return nil
}
