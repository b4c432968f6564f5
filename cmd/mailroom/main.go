// Copyright (C) 2025  The Mailroom Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/log"
)

const usageText = `
Usage:
  mailroom [OPTIONS] COMMAND

  Correlate and track client email for the firm.

Version:
  %s

Commands:
  start     Start the mailroom server
  shell     Start an interactive administration shell

Options:
%s
`

var (
	// Version is set at compile-time.
	Version string
)

func init() {
	viper.SetDefault("log.level", "debug")
}

func main() {
	var configFilename string

	flags := pflag.NewFlagSet("mailroom", pflag.ContinueOnError)
	flags.StringVarP(&configFilename, "config", "c", "", "Path to a configuration file")
	flags.Usage = printUsage(flags)

	if err := flags.Parse(os.Args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}

		log.Fatal().Err(err).Msg("could not parse flags")
	}

	switch commandName := flags.Arg(1); commandName {
	case "start", "shell":
		setupConfig(configFilename)
		setupLogger()
		printConfig()
		runCommand(commandName)
	default:
		flags.Usage()
	}
}

type command interface {
	run() error
}

func runCommand(commandName string) {
	var (
		cmd command
		err error
	)

	switch commandName {
	case "start":
		cmd, err = newStartCommand()
	case "shell":
		cmd, err = newShellCommand()
	}

	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize the application")
	}

	if err := cmd.run(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func printUsage(flags *pflag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, usageText,
			Version,
			flags.FlagUsages())
	}
}

func setupLogger() {
	logLevel, err := zerolog.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.Fatal().Err(err).Msg("unknown log level")
	}

	log.Info().Str("level", logLevel.String()).Msg("setting log level")
	zerolog.SetGlobalLevel(logLevel)
}

func setupConfig(filename string) {
	viper.SetTypeByDefaultValue(true)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetEnvPrefix("MAILROOM")

	if filename != "" {
		readConfig(filename)
	} else {
		log.Info().Msg("no config file provided. using environment only")
	}
}

func readConfig(filename string) {
	log.Info().Str("filename", filename).Msg("loading configuration")
	viper.SetConfigFile(filename)

	if err := viper.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			log.Warn().Err(err).Msg("configuration file missing")
		} else {
			log.Fatal().Err(err).Msg("could not load configuration")
		}
	}
}

func printConfig() {
	keys := viper.AllKeys()
	sort.Strings(keys)

	for _, key := range keys {
		v, _ := json.Marshal(viper.Get(key))
		log.Debug().Str("key", key).RawJSON("value", v).Msg("config")
	}
}
