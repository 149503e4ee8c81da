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

package env

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
)

// ToCmdArgs maps the user hyperparameters to command-line arguments for the
// entry point: "--key value" pairs in sorted key order. Booleans are
// lowered to "true"/"false"; composite values are passed as JSON.
func (e *Environment) ToCmdArgs() []string {
	keys := maps.Keys(e.Hyperparameters)
	sort.Strings(keys)

	args := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, "--"+k, formatValue(e.Hyperparameters[k]))
	}
	return args
}

// ToEnvVars exports the environment as SM_* variables for the entry-point
// process, mirroring what the training framework injects.
func (e *Environment) ToEnvVars() map[string]string {
	vars := map[string]string{
		"SM_HOSTS":            mustJSON(e.Hosts),
		"SM_CURRENT_HOST":     e.CurrentHost,
		"SM_MODULE_DIR":       e.ModuleDir,
		"SM_USER_ENTRY_POINT": e.UserEntryPoint,
		"SM_MODEL_DIR":        ModelDir,
		"SM_OUTPUT_DATA_DIR":  OutputDataDir,
		"SM_CHANNELS":         mustJSON(e.Channels),
		"SM_HPS":              mustJSON(e.Hyperparameters),
	}
	if e.CurrentInstanceGroup != "" {
		vars["SM_CURRENT_INSTANCE_GROUP"] = e.CurrentInstanceGroup
	}
	for _, k := range sortedHyperparameterKeys(e.Hyperparameters) {
		vars["SM_HP_"+strings.ToUpper(sanitizeEnvKey(k))] = formatValue(e.Hyperparameters[k])
	}
	for _, c := range e.Channels {
		vars["SM_CHANNEL_"+strings.ToUpper(sanitizeEnvKey(c))] = BasePath + "/input/data/" + c
	}
	return vars
}

func formatValue(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return mustJSON(value)
	}
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only reachable for values that cannot come out of a JSON parse.
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func sanitizeEnvKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, k)
}

func sortedHyperparameterKeys(m map[string]interface{}) []string {
	keys := maps.Keys(m)
	sort.Strings(keys)
	return keys
}

func sortStrings(keys []string) {
	sort.Strings(keys)
}
