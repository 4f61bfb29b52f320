package commands

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/pdrhub/pkg/pldmevent"
)

var (
	eventDeleted  []string
	eventAdded    []string
	eventModified []string
	eventMaxSize  int
	eventSendEID  string
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Compose a PDR repository change event",
	Long: `event composes a pldmPDRRepositoryChgEvent from the given remote
handles, prints its wire encoding, and optionally injects it into the
daemon. Handles accept decimal or 0x-prefixed hex.

An event whose encoded size would exceed --max-size degrades to a
refresh-entire-repository event, the same fallback a terminus-side
change tracker applies when a delta outgrows the transport MTU.`,
	Example: `  pdrctl event --deleted 10 --added 0x1E
  pdrctl event --modified 20 --send 29`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker := pldmevent.NewChangeTracker()

		for _, set := range []struct {
			values []string
			record func(...uint32) error
		}{
			{eventDeleted, tracker.RecordDeleted},
			{eventAdded, tracker.RecordAdded},
			{eventModified, tracker.RecordModified},
		} {
			for _, raw := range set.values {
				handle, err := strconv.ParseUint(raw, 0, 32)
				if err != nil {
					return fmt.Errorf("handle %q must be a 32-bit integer: %w", raw, err)
				}
				if err := set.record(uint32(handle)); err != nil {
					return err
				}
			}
		}

		event := tracker.BuildEvent(pldmevent.FormatIsPDRHandles, eventMaxSize)
		wire, err := pldmevent.Encode(event)
		if err != nil {
			return err
		}

		fmt.Printf("format: %s\n", event.Format)
		for _, rec := range event.Records {
			fmt.Printf("  %s: %d entries\n", rec.Operation, len(rec.Entries))
		}
		fmt.Printf("wire (%d bytes): %s\n", len(wire), hex.EncodeToString(wire))

		if eventSendEID != "" {
			eid, err := strconv.ParseUint(eventSendEID, 0, 8)
			if err != nil {
				return fmt.Errorf("eid must be an 8-bit integer: %w", err)
			}
			return postEvent(uint8(eid), wire)
		}
		return nil
	},
}

func init() {
	eventCmd.Flags().StringSliceVar(&eventDeleted, "deleted", nil, "remote handles reported deleted")
	eventCmd.Flags().StringSliceVar(&eventAdded, "added", nil, "remote handles reported added")
	eventCmd.Flags().StringSliceVar(&eventModified, "modified", nil, "remote handles reported modified")
	eventCmd.Flags().IntVar(&eventMaxSize, "max-size", 0, "encoded size budget, 0 for unlimited")
	eventCmd.Flags().StringVar(&eventSendEID, "send", "", "inject the event for this terminus eid")
}
