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
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/bazaar/database/models"
)

const (
	testAuthor   = "GAUTHOR"
	testReviewer = "GREVIEWER"
	testHash     = "abababababababababababababababababababababababababababababababab"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BAZAAR_DATABASE_PATH", t.TempDir())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd, err := newRootCommand()
	require.NoError(t, err)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "bazaar %s", strings.Join(args, " "))
	if v != nil {
		require.NoError(t, json.Unmarshal([]byte(out), v), out)
	}
}

func TestContractLifecycle(t *testing.T) {
	setupEnv(t)
	var created idResult
	mustRun(t, &created,
		"--principal", testAuthor,
		"contract", "publish",
		"--wasm-hash", testHash,
		"--name", "token",
		"--description", "fungible token",
		"--version", "1.0.0",
		"--category", "defi",
		"--tag", "erc20",
		"--tag", "token",
		"--source-url", "https://example.com/token",
		"--license", "MIT",
	)
	assert.Equal(t, uint32(1), created.ID)

	var record models.ContractRecord
	mustRun(t, &record, "contract", "get", "1")
	assert.Equal(t, "token", record.Name)
	assert.Equal(t, models.CategoryDeFi, record.Category)
	assert.Equal(t, []string{"erc20", "token"}, record.Tags)

	mustRun(t, &record,
		"--principal", testAuthor,
		"contract", "update", "1",
		"--description", "better token",
	)
	assert.Equal(t, "better token", record.Description)
	assert.Equal(t, []string{"erc20", "token"}, record.Tags)

	var found []models.ContractRecord
	mustRun(t, &found, "contract", "search", "--tag", "erc20")
	require.Len(t, found, 1)
	mustRun(t, &found, "contract", "search", "--category", "NFT")
	assert.Empty(t, found)
	mustRun(t, &found, "contract", "list", "--author", testAuthor)
	require.Len(t, found, 1)

	var ok okResult
	mustRun(t, &ok, "--principal", testReviewer, "contract", "verify", "1")
	assert.True(t, ok.OK)
	mustRun(t, &record, "contract", "get", "1")
	assert.True(t, record.Verified)
}

func TestReviewCommands(t *testing.T) {
	setupEnv(t)
	mustRun(t, nil,
		"--principal", testAuthor,
		"contract", "publish",
		"--wasm-hash", testHash,
		"--name", "token",
		"--description", "fungible token",
		"--source-url", "https://example.com/token",
	)
	var created idResult
	mustRun(t, &created,
		"--principal", testReviewer,
		"review", "submit",
		"--contract", "1",
		"--rating", "5",
		"--comment", "great",
	)
	assert.Equal(t, uint32(1), created.ID)

	_, err := run(t,
		"--principal", testReviewer,
		"review", "submit",
		"--contract", "1",
		"--rating", "4",
		"--comment", "again",
	)
	require.Error(t, err)

	var review models.Review
	mustRun(t, &review, "--principal", testAuthor, "review", "upvote", "1")
	assert.Equal(t, uint32(1), review.Upvotes)

	var summary models.ReviewSummary
	mustRun(t, &summary, "review", "summary", "1")
	assert.Equal(t, uint32(1), summary.TotalReviews)
	assert.Equal(t, uint32(500), summary.AverageRating)
	assert.Equal(t, [5]uint32{0, 0, 0, 0, 1}, summary.Distribution)

	var journal []models.Notification
	mustRun(t, &journal, "journal", "--type", "review.upvoted")
	require.Len(t, journal, 1)
	assert.Equal(t, testAuthor, journal[0].Principal)
}

func TestPrincipalRequired(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "review", "upvote", "1")
	require.ErrorIs(t, err, errNoPrincipal)
}

func TestBadArguments(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "contract", "get", "not-a-number")
	require.Error(t, err)
	_, err = run(t, "contract", "search")
	require.Error(t, err)
	_, err = run(t, "--principal", testAuthor, "deployment", "create",
		"--contract", "1", "--wasm-hash", "zz", "--salt", testHash)
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, programName+" "))
}

func TestListAllPlugins(t *testing.T) {
	out := listAllPlugins()
	assert.Contains(t, out, "badger")
	assert.Contains(t, out, "sqlite")
	exit, _ := listPlugins("badger", "sqlite")
	assert.False(t, exit)
	exit, out = listPlugins("list", "sqlite")
	assert.True(t, exit)
	assert.Contains(t, out, "Available blob plugins")
}
