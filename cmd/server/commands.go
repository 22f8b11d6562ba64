package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rpggio/inventory/internal/domain/summary"
	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	var (
		full   bool
		status []string
		search string
		sortBy string
		desc   bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan, record it in history and print the summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			run := a.runner.RunOnce
			if full {
				run = a.runner.RunFull
			}
			s, err := run(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			filter := summary.Filter{Status: status, Search: search, SortBy: sortBy, SortDesc: desc, Limit: limit}
			return writeJSON(cmd.OutOrStdout(), filter.Apply(s))
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "force a full scan even when incremental mode is configured")
	cmd.Flags().StringSliceVar(&status, "status", nil, "only list uploads with these statuses")
	cmd.Flags().StringVar(&search, "search", "", "only list uploads whose name, uuid or database file contains this text")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort uploads by created_at, name, nomenclature or counterparties")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort in descending order")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of uploads to list")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var (
		limit   int
		id      int64
		details bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded scans, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			if id > 0 {
				entry, err := a.history.GetScan(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), entry)
			}

			entries, err := a.history.GetHistory(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if !details {
				for i := range entries {
					if entries[i].Summary != nil {
						trimmed := *entries[i].Summary
						trimmed.UploadDetails = nil
						entries[i].Summary = &trimmed
					}
				}
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of scans to print (default 50, at most 1000)")
	cmd.Flags().Int64Var(&id, "id", 0, "print a single scan by id")
	cmd.Flags().BoolVar(&details, "details", false, "include per-upload details")
	return cmd
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [old-id new-id]",
		Short: "Diff two recorded scans, or the two most recent when no ids are given",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no ids or exactly two, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var oldID, newID int64
			if len(args) == 2 {
				if _, err := fmt.Sscan(args[0], &oldID); err != nil {
					return fmt.Errorf("invalid old id %q: %w", args[0], err)
				}
				if _, err := fmt.Sscan(args[1], &newID); err != nil {
					return fmt.Errorf("invalid new id %q: %w", args[1], err)
				}
			}

			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 {
				diff, err := a.history.CompareLatest(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), diff)
			}
			diff, err := a.history.CompareByID(cmd.Context(), oldID, newID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), diff)
		},
	}
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
