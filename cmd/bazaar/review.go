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

	"github.com/spf13/cobra"
)

func reviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review contracts and vote on reviews",
	}
	cmd.AddCommand(
		reviewSubmitCommand(),
		reviewUpvoteCommand(),
		reviewGetCommand(),
		reviewListCommand(),
		reviewSummaryCommand(),
	)
	return cmd
}

func reviewSubmitCommand() *cobra.Command {
	var (
		contractID uint32
		rating     uint32
		comment    string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Review a contract as the principal",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, _ []string) (any, error) {
		principal, err := s.requirePrincipal()
		if err != nil {
			return nil, err
		}
		id, err := s.marketplace.Reviews().Submit(ctx, principal, contractID, rating, comment)
		if err != nil {
			return nil, err
		}
		return idResult{ID: id}, nil
	})
	flags := cmd.Flags()
	flags.Uint32Var(&contractID, "contract", 0, "contract ID")
	flags.Uint32Var(&rating, "rating", 0, "rating from 1 to 5")
	flags.StringVar(&comment, "comment", "", "review comment")
	_ = cmd.MarkFlagRequired("contract")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}

func reviewUpvoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upvote <review-id>",
		Short: "Upvote a review as the principal",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, args []string) (any, error) {
		principal, err := s.requirePrincipal()
		if err != nil {
			return nil, err
		}
		id, err := parseID("review ID", args[0])
		if err != nil {
			return nil, err
		}
		if err := s.marketplace.Reviews().Upvote(ctx, principal, id); err != nil {
			return nil, err
		}
		return s.marketplace.Reviews().Get(ctx, id)
	})
	return cmd
}

func reviewGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <review-id>",
		Short: "Show a review",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, args []string) (any, error) {
		id, err := parseID("review ID", args[0])
		if err != nil {
			return nil, err
		}
		return s.marketplace.Reviews().Get(ctx, id)
	})
	return cmd
}

func reviewListCommand() *cobra.Command {
	var (
		contractID uint32
		reviewer   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reviews, optionally by contract or reviewer",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, _ []string) (any, error) {
		byContract := cmd.Flags().Changed("contract")
		switch {
		case reviewer != "" && byContract:
			return nil, errors.New("use only one of --contract and --reviewer")
		case reviewer != "":
			return s.marketplace.Reviews().ByReviewer(ctx, reviewer)
		case byContract:
			return s.marketplace.Reviews().ByContract(ctx, contractID)
		default:
			return s.marketplace.Reviews().All(ctx)
		}
	})
	cmd.Flags().Uint32Var(&contractID, "contract", 0, "only list reviews of this contract")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "only list reviews by this reviewer")
	return cmd
}

func reviewSummaryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <contract-id>",
		Short: "Show the rating summary of a contract",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, args []string) (any, error) {
		id, err := parseID("contract ID", args[0])
		if err != nil {
			return nil, err
		}
		return s.marketplace.Reviews().Summary(ctx, id)
	})
	return cmd
}
