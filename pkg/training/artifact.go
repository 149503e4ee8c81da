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

package training

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"tf-training-toolkit/pkg/logging"
)

// CheckModelDir inspects the model directory after training and returns
// advisory warnings. A serving container expects a SavedModel bundle under
// a numeric version directory; anything else trains fine but will not
// serve. The check never fails the job.
func CheckModelDir(fs afero.Fs, modelDir string) []string {
	var warnings []string
	fileExists := false
	pbExists := false

	afero.Walk(fs, modelDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		fileExists = true
		name := info.Name()
		if strings.Contains(name, "saved_model.pb") || strings.Contains(name, "saved_model.pbtxt") {
			pbExists = true
			parent := filepath.Base(filepath.Dir(path))
			if !isDigits(parent) {
				warnings = append(warnings, fmt.Sprintf(
					"your model will NOT be servable with TensorFlow Serving containers: "+
						"the SavedModel bundle is under directory %q, not a numeric name", parent))
			}
		}
		return nil
	})

	if !fileExists {
		warnings = append(warnings, fmt.Sprintf(
			"no model artifact is saved under path %s; the training job will not export any model files",
			modelDir))
	} else if !pbExists {
		warnings = append(warnings,
			"your model will NOT be servable with TensorFlow Serving containers: "+
				"the model artifact was not saved in the SavedModel directory structure")
	}
	return warnings
}

// LogModelMissingWarning runs CheckModelDir and emits each finding as a
// log warning.
func LogModelMissingWarning(fs afero.Fs, modelDir string) {
	for _, w := range CheckModelDir(fs, modelDir) {
		logging.Warn("%s", w)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
