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

package cmd

import (
	"context"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"tf-training-toolkit/pkg/env"
	"tf-training-toolkit/pkg/logging"
	"tf-training-toolkit/pkg/training"
)

var (
	moduleDir  string
	entryPoint string
	modelDir   string
)

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVar(&moduleDir, "module-dir", "", "Location of the user module (local path, archive, or remote URL). Overrides the platform configuration.")
	trainCmd.Flags().StringVar(&entryPoint, "entry-point", "", "User entry-point script inside the module. Overrides the platform configuration.")
	trainCmd.Flags().StringVar(&modelDir, "model-dir", env.ModelDir, "Directory inspected for model artifacts after training.")
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Runs the training job described by the container environment.",
	Long: `The 'train' command reads the hyperparameters and resource configuration
under /opt/ml/input/config, selects a distribution strategy, and runs the
user's training script. For the parameter-server strategy it launches a
background parameter server on every host and, on non-master hosts, waits
for the master to exit before letting the parameter server be reaped.`,
	Run:          runTrainCmd,
	SilenceUsage: true,
}

func runTrainCmd(cmd *cobra.Command, args []string) {
	fs := afero.NewOsFs()

	e, err := env.New(fs)
	if err != nil {
		logging.Fatal("failed to read training environment: %v", err)
	}
	if moduleDir != "" {
		e.ModuleDir = moduleDir
	}
	if entryPoint != "" {
		e.UserEntryPoint = entryPoint
	}

	e.AdjustForTuning()

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGTERM, unix.SIGINT)
	defer stop()

	trainErr := training.NewOrchestrator(e).Train(ctx, e.ToCmdArgs())

	// Advisory only: runs whether or not training succeeded, and never
	// changes the job's outcome.
	training.LogModelMissingWarning(fs, modelDir)

	if trainErr != nil {
		logging.Fatal("training job failed: %v", trainErr)
	}
	logging.Info("training job completed")
}
