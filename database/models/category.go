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

package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category classifies a published contract. The numeric values are persisted
// and must not be reordered.
type Category uint32

const (
	CategoryDeFi    Category = 0
	CategoryNFT     Category = 1
	CategoryDAO     Category = 2
	CategoryGaming  Category = 3
	CategoryUtility Category = 4
	CategoryOracle  Category = 5
	CategoryOther   Category = 6
)

var categoryNames = []string{
	"DeFi",
	"NFT",
	"DAO",
	"Gaming",
	"Utility",
	"Oracle",
	"Other",
}

// Categories returns every known category in discriminant order
func Categories() []Category {
	ret := make([]Category, 0, len(categoryNames))
	for i := range categoryNames {
		ret = append(ret, Category(i)) //nolint:gosec // small constant range
	}
	return ret
}

func (c Category) Valid() bool {
	return int(c) < len(categoryNames)
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", uint32(c))
	}
	return categoryNames[c]
}

// ParseCategory accepts a category name, case-insensitively
func ParseCategory(name string) (Category, error) {
	for i, n := range categoryNames {
		if strings.EqualFold(n, name) {
			return Category(i), nil //nolint:gosec // small constant range
		}
	}
	return 0, fmt.Errorf("unknown category: %q", name)
}

func (c Category) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category: %d", uint32(c))
	}
	return json.Marshal(c.String())
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	tmp, err := ParseCategory(name)
	if err != nil {
		return err
	}
	*c = tmp
	return nil
}
