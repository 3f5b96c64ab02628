package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solbody-protocol/solbody-protocol/internal/history"
	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Summarize fetched pool transaction records",
		Long: "Reads the JSONL records produced by the events command and prints " +
			"per-pool activity summaries as JSON.",
		RunE: runHistory,
	}

	cmd.Flags().String("in", "./data/records.jsonl", "input JSONL records path")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	in, _ := cmd.Flags().GetString("in")

	file, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	var records []model.PoolTransactionRecord
	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.PoolTransactionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("parse record: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	summaries := history.Summarize(records)

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(summaries)
}
