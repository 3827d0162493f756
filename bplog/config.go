// Copyright (C) 2018 spdfg
//
// This file is part of Elektron.
//
// Elektron is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Elektron is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Elektron.  If not, see <http://www.gnu.org/licenses/>.
//

package bplog

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is the YAML-backed logging surface: which sinks are active
// and how they're named, mirroring the shape of the teacher's
// per-sink logger config.
type Config struct {
	Console struct {
		Enabled     bool   `yaml:"enabled"`
		MinLogLevel string `yaml:"minLogLevel"`
	} `yaml:"console"`

	Trace struct {
		Enabled           bool   `yaml:"enabled"`
		FilenameExtension string `yaml:"filenameExtension"`
		AllowOnConsole    bool   `yaml:"allowOnConsole"`
	} `yaml:"trace"`
}

// DefaultConfig is used when no config file is supplied: console
// logging at info level, no trace file.
func DefaultConfig() *Config {
	c := &Config{}
	c.Console.Enabled = true
	c.Console.MinLogLevel = "info"
	return c
}

// LoadConfig reads a YAML logging config from path.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read logging config")
	}
	c := &Config{}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, errors.Wrap(err, "parse logging config")
	}
	return c, nil
}
