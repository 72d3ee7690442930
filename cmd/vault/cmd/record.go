package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pinvault/internal/domain/record"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Manage vault records",
	Long:  `Add, view, list and delete protected records.`,
}

func parseRecordID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id: %s", arg)
	}
	return id, nil
}

// promptLine reads one line of visible input, used for non-secret
// fields when the matching flag is empty.
func promptLine(label string) string {
	fmt.Print(label)
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

func requireField(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	value = promptLine(label + ": ")
	if value == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return value, nil
}

func parseRecType(s string) (record.RecType, error) {
	t := record.RecType(strings.ToLower(s))
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("unsupported record type %q (card, bank, login, note)", s)
	}
	return t, nil
}

func init() {
	rootCmd.AddCommand(recordCmd)
}
