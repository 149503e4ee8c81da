// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd defines the toolkit's command-line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"tf-training-toolkit/pkg/logging"
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "tf-training-toolkit",
	Short: "Configures and launches TensorFlow training jobs inside a training container.",
	Long: `tf-training-toolkit is the entry point of a managed TensorFlow training
container. It reads the training environment written by the platform,
derives the TF_CONFIG cluster topology for the selected distribution
strategy, launches parameter-server and worker processes, and coordinates
their shutdown.`,
	Version:      version,
	SilenceUsage: true,
}

// Execute runs the CLI. It does not return on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.Fatal("%v", err)
	}
}
