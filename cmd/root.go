// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd is the cobra command tree: a root command plus the "serve"
// subcommand that loads configuration, constructs the engine, starts it,
// and blocks on OS signals.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version, gitHash and buildTime are set at link time via -ldflags, the
// same way common.BuildInfo's package-level vars are.
var (
	version   string
	gitHash   string
	buildTime string
)

var rootCmd = &cobra.Command{
	Use:   "apiserverd",
	Short: "A single-process HTTP/1.1 server with a versioned content store and dynamic action dispatch",
}

// Execute runs the command tree; main's only job is to call this.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
