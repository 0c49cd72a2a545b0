package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	required                             bool
	// isBool registers a boolean switch instead of a string value.
	isBool bool
	// repeated allows the flag several times, collecting a list.
	repeated bool
	// bindViper is the configuration key the flag overrides.
	bindViper string
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (default is $HOME/.config/railcar-bench/config.yaml)",
		bindViper: "config",
	}
	quietFlag = commandLineFlag{
		name:      "quiet",
		shorthand: "q",
		isBool:    true,
		usage:     "suppress log output",
	}
	debugFlag = commandLineFlag{
		name:      "debug",
		isBool:    true,
		usage:     "enable debug logging",
		bindViper: "debug",
	}
	timeoutFlag = commandLineFlag{
		name:      "timeout",
		shorthand: "t",
		usage:     "per-job timeout in minutes, 0 runs each job until it exits",
	}
	iterationsFlag = commandLineFlag{
		name:      "iterations",
		shorthand: "n",
		usage:     "number of iterations per configuration",
		bindViper: "campaign.iterations",
	}
	modeFlag = commandLineFlag{
		name:      "mode",
		shorthand: "m",
		repeated:  true,
		usage:     "fuzzing mode to run, may be repeated",
		bindViper: "campaign.modes",
	}
	projectFlag = commandLineFlag{
		name:      "project",
		shorthand: "p",
		repeated:  true,
		usage:     "restrict the campaign to this project, may be repeated",
	}
	pinFlag = commandLineFlag{
		name:         "pin",
		isBool:       true,
		defaultValue: "true",
		usage:        "pin every job to its assigned cores, --pin=false lets jobs float",
		bindViper:    "campaign.pin",
	}
	capacityFlag = commandLineFlag{
		name:      "capacity",
		usage:     "number of cores to schedule on (default is the host's logical core count)",
		bindViper: "campaign.capacity",
	}
	workersFlag = commandLineFlag{
		name:      "workers",
		usage:     "maximum number of jobs running at once (default is the capacity)",
		bindViper: "campaign.workers",
	}
	engineFlag = commandLineFlag{
		name:      "engine",
		shorthand: "e",
		usage:     "engine kind: fuzz, managed or unit-test",
		bindViper: "engine.kind",
	}
	resultsDirFlag = commandLineFlag{
		name:      "results-dir",
		shorthand: "o",
		usage:     "directory holding the results roots",
		bindViper: "resultsDir",
	}
)

// campaignFlags select the configuration space of a campaign.
var campaignFlags = []commandLineFlag{
	timeoutFlag, iterationsFlag, modeFlag, projectFlag, pinFlag,
	capacityFlag, workersFlag, engineFlag, resultsDirFlag,
}

// initFlags registers the given flags together with the common ones.
func initFlags(cmd *cobra.Command, additionalFlags ...commandLineFlag) {
	flags := append([]commandLineFlag{configFlag, quietFlag, debugFlag}, additionalFlags...)
	for _, flag := range flags {
		switch {
		case flag.isBool:
			cmd.Flags().BoolP(flag.name, flag.shorthand, flag.defaultValue == "true", flag.usage)
		case flag.repeated:
			var def []string
			if flag.defaultValue != "" {
				def = strings.Split(flag.defaultValue, ",")
			}
			cmd.Flags().StringSliceP(flag.name, flag.shorthand, def, flag.usage)
		default:
			cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
		}
		if flag.required {
			if err := cmd.MarkFlagRequired(flag.name); err != nil {
				fmt.Printf("failed to mark flag %s as required: %v\n", flag.name, err)
			}
		}
	}
}

// bindFlags binds the flags to their configuration keys so that a flag set
// on the command line overrides the config file and the environment.
func bindFlags(cmd *cobra.Command, additionalFlags ...commandLineFlag) error {
	flags := append([]commandLineFlag{configFlag, quietFlag, debugFlag}, additionalFlags...)
	for _, flag := range flags {
		if flag.bindViper == "" {
			continue
		}
		if err := viper.BindPFlag(flag.bindViper, cmd.Flags().Lookup(flag.name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.name, err)
		}
	}
	return applyTimeoutFlag(cmd)
}

// applyTimeoutFlag converts the timeout given in minutes to the seconds
// expected by campaign.timeout.
func applyTimeoutFlag(cmd *cobra.Command) error {
	flag := cmd.Flags().Lookup(timeoutFlag.name)
	if flag == nil || !flag.Changed {
		return nil
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(flag.Value.String()))
	if err != nil || minutes < 0 {
		return fmt.Errorf("invalid --%s %q: expected a non-negative number of minutes", timeoutFlag.name, flag.Value.String())
	}
	viper.Set("campaign.timeout", strconv.Itoa(minutes*60))
	return nil
}
