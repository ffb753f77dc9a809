/*
 * Copyright 2025 The Segue Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/segue-live/segue/pkg/units"
	"github.com/segue-live/segue/server/backend/snapshot"
)

var (
	snapshotPath string
	output       string
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List saved event snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := snapshot.NewSQLiteStore(snapshotPath)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			snapshots, err := store.List(context.Background())
			if err != nil {
				return err
			}

			return printSnapshots(cmd, output, snapshots)
		},
	}
}

func printSnapshots(cmd *cobra.Command, output string, snapshots []*snapshot.Snapshot) error {
	switch output {
	case "":
		tw := table.NewWriter()
		tw.Style().Options.DrawBorder = false
		tw.Style().Options.SeparateColumns = false
		tw.Style().Options.SeparateFooter = false
		tw.Style().Options.SeparateHeader = false
		tw.Style().Options.SeparateRows = false
		tw.AppendHeader(table.Row{
			"ID",
			"NAME",
			"START DATE",
			"ITEMS",
			"MINUTES",
			"SAVED",
		})
		for _, snap := range snapshots {
			minutes := 0
			for _, item := range snap.Items {
				minutes += item.DurationInMinutes
			}
			tw.AppendRow(table.Row{
				snap.ID,
				snap.EventName,
				snap.StartDate,
				len(snap.Items),
				minutes,
				units.HumanDuration(time.Now().UTC().Sub(snap.CreatedAt)),
			})
		}
		cmd.Printf("%s\n", tw.Render())
	case "json":
		jsonOutput, err := json.MarshalIndent(snapshots, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		cmd.Println(string(jsonOutput))
	case "yaml":
		yamlOutput, err := yaml.Marshal(snapshots)
		if err != nil {
			return fmt.Errorf("marshal YAML: %w", err)
		}
		cmd.Println(string(yamlOutput))
	default:
		return fmt.Errorf("unknown output format: %s", output)
	}

	return nil
}

func init() {
	cmd := newListCommand()
	cmd.Flags().StringVar(
		&snapshotPath,
		"snapshot-path",
		"segue.db",
		"SQLite database path the server saves snapshots to",
	)
	cmd.Flags().StringVarP(
		&output,
		"output",
		"o",
		"",
		"One of 'json' or 'yaml'",
	)
	SubCmd.AddCommand(cmd)
}
