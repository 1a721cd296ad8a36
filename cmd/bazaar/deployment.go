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

	"github.com/blinklabs-io/bazaar/deployment"
	"github.com/spf13/cobra"
)

func deploymentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deployment",
		Short: "Record and browse contract deployments",
	}
	cmd.AddCommand(
		deploymentCreateCommand(),
		deploymentGetCommand(),
		deploymentListCommand(),
	)
	return cmd
}

func deploymentCreateCommand() *cobra.Command {
	var (
		contractID uint32
		wasmHash   string
		salt       string
		admin      string
		args       []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Deploy a contract instance as the principal",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, _ []string) (any, error) {
		principal, err := s.requirePrincipal()
		if err != nil {
			return nil, err
		}
		hash, err := parseHex("wasm hash", wasmHash, 0)
		if err != nil {
			return nil, err
		}
		saltBytes, err := parseHex("salt", salt, 0)
		if err != nil {
			return nil, err
		}
		var id uint32
		if admin != "" {
			if len(args) > 0 {
				return nil, errors.New("--admin and --arg cannot be combined")
			}
			id, err = s.marketplace.Deployments().DeployWithAdmin(
				ctx, principal, contractID, hash, saltBytes, admin,
			)
		} else {
			params := deployment.DeployParams{
				ContractID: contractID,
				WasmHash:   hash,
				Salt:       saltBytes,
			}
			for _, arg := range args {
				raw, err := parseHex("constructor argument", arg, 0)
				if err != nil {
					return nil, err
				}
				params.ConstructorArgs = append(params.ConstructorArgs, raw)
			}
			id, err = s.marketplace.Deployments().Deploy(ctx, principal, params)
		}
		if err != nil {
			return nil, err
		}
		return s.marketplace.Deployments().Get(ctx, id)
	})
	flags := cmd.Flags()
	flags.Uint32Var(&contractID, "contract", 0, "registry contract ID")
	flags.StringVar(&wasmHash, "wasm-hash", "", "hex encoded WASM hash (32 bytes)")
	flags.StringVar(&salt, "salt", "", "hex encoded salt (32 bytes)")
	flags.StringVar(&admin, "admin", "", "admin address passed as the only constructor argument")
	flags.StringArrayVar(&args, "arg", nil, "hex encoded XDR ScVal constructor argument (repeatable)")
	_ = cmd.MarkFlagRequired("contract")
	_ = cmd.MarkFlagRequired("wasm-hash")
	_ = cmd.MarkFlagRequired("salt")
	return cmd
}

func deploymentGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <deployment-id>",
		Short: "Show a deployment",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, args []string) (any, error) {
		id, err := parseID("deployment ID", args[0])
		if err != nil {
			return nil, err
		}
		return s.marketplace.Deployments().Get(ctx, id)
	})
	return cmd
}

func deploymentListCommand() *cobra.Command {
	var (
		deployer   string
		contractID uint32
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deployments, optionally by deployer or contract",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = runWith(func(ctx context.Context, s *session, _ []string) (any, error) {
		byContract := cmd.Flags().Changed("contract")
		switch {
		case deployer != "" && byContract:
			return nil, errors.New("use only one of --deployer and --contract")
		case deployer != "":
			return s.marketplace.Deployments().ByDeployer(ctx, deployer)
		case byContract:
			return s.marketplace.Deployments().ByContract(ctx, contractID)
		default:
			return s.marketplace.Deployments().All(ctx)
		}
	})
	cmd.Flags().StringVar(&deployer, "deployer", "", "only list deployments by this deployer")
	cmd.Flags().Uint32Var(&contractID, "contract", 0, "only list deployments of this contract")
	return cmd
}
