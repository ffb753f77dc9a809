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

// Package event provides the event command hierarchy. Its subcommands
// inspect the snapshots a Segue server has saved.
package event

import "github.com/spf13/cobra"

// SubCmd represents the event command.
var SubCmd = &cobra.Command{
	Use:   "event",
	Short: "Manage saved event snapshots",
}
