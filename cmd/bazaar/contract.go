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
	"errors"

	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/registry"
	"github.com/spf13/cobra"
)

func contractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Publish and browse contracts",
	}
	cmd.AddCommand(
		contractPublishCommand(),
		contractUpdateCommand(),
		contractVerifyCommand(),
		contractGetCommand(),
		contractListCommand(),
		contractSearchCommand(),
	)
	return cmd
}

func contractPublishCommand() *cobra.Command {
	var (
		wasmHash string
		category string
		params   registry.PublishParams
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a contract authored by the principal",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, _ []string) (any, error) {
		principal, err := s.requirePrincipal()
		if err != nil {
			return nil, err
		}
		params.WasmHash, err = parseHex("wasm hash", wasmHash, 0)
		if err != nil {
			return nil, err
		}
		params.Category, err = models.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		params.Author = principal
		id, err := s.marketplace.Registry().Publish(ctx, principal, params)
		if err != nil {
			return nil, err
		}
		return idResult{ID: id}, nil
	})
	flags := cmd.Flags()
	flags.StringVar(&wasmHash, "wasm-hash", "", "hex encoded WASM hash (32 bytes)")
	flags.StringVar(&category, "category", models.CategoryOther.String(), "contract category")
	flags.StringVar(&params.Name, "name", "", "contract name")
	flags.StringVar(&params.Description, "description", "", "contract description")
	flags.StringVar(&params.Version, "version", "", "contract version")
	flags.StringSliceVar(&params.Tags, "tag", nil, "tag (repeatable)")
	flags.StringVar(&params.SourceURL, "source-url", "", "source code URL")
	flags.StringVar(&params.DocumentationURL, "doc-url", "", "documentation URL")
	flags.StringVar(&params.License, "license", "", "license identifier")
	_ = cmd.MarkFlagRequired("wasm-hash")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func contractUpdateCommand() *cobra.Command {
	var (
		description string
		docURL      string
		tags        []string
	)
	cmd := &cobra.Command{
		Use:   "update <contract-id>",
		Short: "Update the description, documentation URL or tags of a contract",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, args []string) (any, error) {
		principal, err := s.requirePrincipal()
		if err != nil {
			return nil, err
		}
		id, err := parseID("contract ID", args[0])
		if err != nil {
			return nil, err
		}
		var params registry.UpdateParams
		flags := cmd.Flags()
		if flags.Changed("description") {
			params.Description = &description
		}
		if flags.Changed("doc-url") {
			params.DocumentationURL = &docURL
		}
		if flags.Changed("tag") {
			params.Tags = &tags
		}
		if err := s.marketplace.Registry().Update(ctx, principal, id, params); err != nil {
			return nil, err
		}
		return s.marketplace.Registry().Get(ctx, id)
	})
	flags := cmd.Flags()
	flags.StringVar(&description, "description", "", "new description")
	flags.StringVar(&docURL, "doc-url", "", "new documentation URL")
	flags.StringSliceVar(&tags, "tag", nil, "replacement tag (repeatable)")
	return cmd
}

func contractVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <contract-id>",
		Short: "Mark a contract as verified",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, args []string) (any, error) {
		principal, err := s.requirePrincipal()
		if err != nil {
			return nil, err
		}
		id, err := parseID("contract ID", args[0])
		if err != nil {
			return nil, err
		}
		if err := s.marketplace.Registry().Verify(ctx, principal, id); err != nil {
			return nil, err
		}
		return okResult{OK: true}, nil
	})
	return cmd
}

func contractGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <contract-id>",
		Short: "Show a contract",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, args []string) (any, error) {
		id, err := parseID("contract ID", args[0])
		if err != nil {
			return nil, err
		}
		return s.marketplace.Registry().Get(ctx, id)
	})
	return cmd
}

func contractListCommand() *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contracts in publish order",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, _ []string) (any, error) {
		if author != "" {
			return s.marketplace.Registry().ContractsByAuthor(ctx, author)
		}
		return s.marketplace.Registry().All(ctx)
	})
	cmd.Flags().StringVar(&author, "author", "", "only list contracts by this author")
	return cmd
}

func contractSearchCommand() *cobra.Command {
	var (
		category string
		tag      string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search contracts by category or tag",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, _ []string) (any, error) {
		switch {
		case category != "" && tag != "":
			return nil, errors.New("use only one of --category and --tag")
		case category != "":
			c, err := models.ParseCategory(category)
			if err != nil {
				return nil, err
			}
			return s.marketplace.Registry().SearchByCategory(ctx, c)
		case tag != "":
			return s.marketplace.Registry().SearchByTag(ctx, tag)
		default:
			return nil, errors.New("one of --category or --tag is required")
		}
	})
	cmd.Flags().StringVar(&category, "category", "", "category name")
	cmd.Flags().StringVar(&tag, "tag", "", "tag")
	return cmd
}
