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
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/blinklabs-io/bazaar"
	"github.com/blinklabs-io/bazaar/internal/config"
	"github.com/blinklabs-io/bazaar/internal/node"
	"github.com/spf13/cobra"
)

var errNoPrincipal = errors.New(
	"no principal given (use --principal or the principal config key)",
)

// session is the state handed to every marketplace subcommand
type session struct {
	marketplace *bazaar.Marketplace
	principal   string
}

func (s *session) requirePrincipal() (string, error) {
	if s.principal == "" {
		return "", errNoPrincipal
	}
	return s.principal, nil
}

// runWith opens the marketplace, runs fn and prints its result as JSON
func runWith(
	fn func(ctx context.Context, s *session, args []string) (any, error),
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if cfg == nil {
			return errors.New("no config found in context")
		}
		logger := commonRun()
		m, err := node.Open(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if stopErr := m.Stop(); stopErr != nil {
				logger.Error("shutdown failed", "error", stopErr)
			}
		}()
		ret, err := fn(
			cmd.Context(),
			&session{marketplace: m, principal: cfg.Principal},
			args,
		)
		if err != nil {
			return err
		}
		return printJSON(cmd, ret)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(name, value string) (uint32, error) {
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return uint32(id), nil
}

// parseHex decodes a hex flag value, requiring size bytes when size > 0
func parseHex(name, value string, size int) ([]byte, error) {
	ret, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	if size > 0 && len(ret) != size {
		return nil, fmt.Errorf(
			"invalid %s: expected %d bytes, got %d",
			name, size, len(ret),
		)
	}
	return ret, nil
}

type idResult struct {
	ID uint32 `json:"id"`
}

type okResult struct {
	OK bool `json:"ok"`
}
