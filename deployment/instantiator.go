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

package deployment

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/stellar/go/network"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

var ErrZeroWasmHash = errors.New("wasm hash is all zeroes")

// InstantiateRequest carries everything needed to create a contract instance
type InstantiateRequest struct {
	Deployer        string
	WasmHash        []byte
	Salt            []byte
	ConstructorArgs [][]byte
}

// Instantiator creates a contract instance and returns its address
type Instantiator interface {
	Instantiate(ctx context.Context, req InstantiateRequest) (string, error)
}

// InstantiatorFunc adapts a function to the Instantiator interface
type InstantiatorFunc func(ctx context.Context, req InstantiateRequest) (string, error)

func (f InstantiatorFunc) Instantiate(
	ctx context.Context,
	req InstantiateRequest,
) (string, error) {
	return f(ctx, req)
}

// SorobanInstantiator derives the address a Soroban deployer would assign to
// an instance created from (deployer, salt) on the configured network. It
// does not execute any code.
type SorobanInstantiator struct {
	NetworkPassphrase string
}

func NewSorobanInstantiator(passphrase string) SorobanInstantiator {
	if passphrase == "" {
		passphrase = network.TestNetworkPassphrase
	}
	return SorobanInstantiator{NetworkPassphrase: passphrase}
}

func (s SorobanInstantiator) Instantiate(
	ctx context.Context,
	req InstantiateRequest,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var zero [32]byte
	if len(req.WasmHash) != len(zero) {
		return "", fmt.Errorf("wasm hash must be %d bytes", len(zero))
	}
	if [32]byte(req.WasmHash) == zero {
		return "", ErrZeroWasmHash
	}
	if len(req.Salt) != len(zero) {
		return "", fmt.Errorf("salt must be %d bytes", len(zero))
	}
	deployer, err := ScAddress(req.Deployer)
	if err != nil {
		return "", fmt.Errorf("deployer: %w", err)
	}
	for i, arg := range req.ConstructorArgs {
		var val xdr.ScVal
		if err := val.UnmarshalBinary(arg); err != nil {
			return "", fmt.Errorf("constructor argument %d: %w", i, err)
		}
	}
	return ContractAddress(s.NetworkPassphrase, deployer, [32]byte(req.Salt))
}

// ContractAddress computes the strkey of the contract created by deployer
// with salt on the network identified by passphrase
func ContractAddress(
	passphrase string,
	deployer xdr.ScAddress,
	salt [32]byte,
) (string, error) {
	preimage := xdr.HashIdPreimage{
		Type: xdr.EnvelopeTypeEnvelopeTypeContractId,
		ContractId: &xdr.HashIdPreimageContractId{
			NetworkId: xdr.Hash(network.ID(passphrase)),
			ContractIdPreimage: xdr.ContractIdPreimage{
				Type: xdr.ContractIdPreimageTypeContractIdPreimageFromAddress,
				FromAddress: &xdr.ContractIdPreimageFromAddress{
					Address: deployer,
					Salt:    xdr.Uint256(salt),
				},
			},
		},
	}
	data, err := preimage.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode contract id preimage: %w", err)
	}
	hash := sha256.Sum256(data)
	return strkey.Encode(strkey.VersionByteContract, hash[:])
}

// ScAddress parses an account (G...) or contract (C...) strkey
func ScAddress(address string) (xdr.ScAddress, error) {
	if strkey.IsValidEd25519PublicKey(address) {
		var accountID xdr.AccountId
		if err := accountID.SetAddress(address); err != nil {
			return xdr.ScAddress{}, err
		}
		return xdr.ScAddress{
			Type:      xdr.ScAddressTypeScAddressTypeAccount,
			AccountId: &accountID,
		}, nil
	}
	raw, err := strkey.Decode(strkey.VersionByteContract, address)
	if err != nil {
		return xdr.ScAddress{}, fmt.Errorf("invalid address %q: %w", address, err)
	}
	contractID := xdr.ContractId(raw)
	return xdr.ScAddress{
		Type:       xdr.ScAddressTypeScAddressTypeContract,
		ContractId: &contractID,
	}, nil
}

// EncodeArgs serializes constructor arguments as XDR
func EncodeArgs(vals ...xdr.ScVal) ([][]byte, error) {
	ret := make([][]byte, 0, len(vals))
	for i, val := range vals {
		data, err := val.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode argument %d: %w", i, err)
		}
		ret = append(ret, data)
	}
	return ret, nil
}

// AddressArg builds an address-typed constructor argument
func AddressArg(address string) (xdr.ScVal, error) {
	addr, err := ScAddress(address)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return xdr.ScVal{Type: xdr.ScValTypeScvAddress, Address: &addr}, nil
}
