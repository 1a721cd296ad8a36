// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"

	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/spf13/cobra"
)

func journalCommand() *cobra.Command {
	var filter models.NotificationFilter
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List committed marketplace notifications",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runWith(func(_ context.Context, s *session, _ []string) (any, error) {
		return s.marketplace.Journal(filter)
	})
	flags := cmd.Flags()
	flags.StringVar(&filter.Type, "type", "", "only show notifications of this type (for example registry.published)")
	flags.Uint32Var(&filter.EntityID, "entity", 0, "only show notifications about this entity ID")
	flags.IntVar(&filter.Limit, "limit", 0, "maximum number of notifications, 0 for all")
	return cmd
}
