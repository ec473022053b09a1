package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/boozedog/chronicle/internal/identity"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var appendCmd = &cobra.Command{
	Use:   "append <path>",
	Short: "Append one event to a chronicle",
	Long: `Reads one event as JSON or YAML from --file or stdin and appends it.
The timestamp and actor are filled in when absent. Appending an event that is
already among the recent lines is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runAppend,
}

var (
	appendFile   string
	appendWithID bool
)

func init() {
	appendCmd.Flags().StringVarP(&appendFile, "file", "f", "", "read the event from this file instead of stdin")
	appendCmd.Flags().BoolVar(&appendWithID, "with-id", false, "trust the eventId in the input instead of computing it")
	addTimeoutFlag(appendCmd)
	rootCmd.AddCommand(appendCmd)
}

func runAppend(cmd *cobra.Command, args []string) error {
	path := args[0]

	var (
		data []byte
		err  error
	)
	if appendFile != "" {
		data, err = os.ReadFile(appendFile)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}

	e, err := decodeEvent(data)
	if err != nil {
		return err
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.Actor == (chronicle.Actor{}) {
		e.Actor = identity.Actor()
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	if appendWithID {
		if err := store.AppendEventWithID(path, e, lockTimeout()); err != nil {
			return err
		}
		fmt.Println(e.EventID)
		return nil
	}

	if err := store.AppendEvent(path, e, lockTimeout()); err != nil {
		return err
	}
	id, err := chronicle.ComputeEventID(e)
	if err != nil {
		return fmt.Errorf("compute event id: %w", err)
	}
	fmt.Println(id)
	return nil
}

// decodeEvent parses a JSON object, or failing that a YAML mapping. YAML input
// is normalized through JSON so both forms hash the same.
func decodeEvent(data []byte) (chronicle.Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return chronicle.Event{}, fmt.Errorf("decode event: empty input")
	}

	var e chronicle.Event
	if data[0] == '{' {
		if err := json.Unmarshal(data, &e); err != nil {
			return chronicle.Event{}, fmt.Errorf("decode event: %w", err)
		}
		return e, nil
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return chronicle.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if m == nil {
		return chronicle.Event{}, fmt.Errorf("decode event: not a mapping")
	}
	normalized, err := json.Marshal(m)
	if err != nil {
		return chronicle.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := json.Unmarshal(normalized, &e); err != nil {
		return chronicle.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}
