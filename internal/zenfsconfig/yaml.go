// Copyright 2026 The ZenFS Authors.
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

package zenfsconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML config file directly into a Config, applying the
// same Rationalize/Validate pass Decode does. This is the lightweight path
// for a host that just wants "read this file", as opposed to Decode's
// flags+env+file layering through viper.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	Rationalize(&c)
	if err := Validate(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Stringify renders c back to YAML, e.g. for a host's --dump-config flag.
func Stringify(c Config) (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
