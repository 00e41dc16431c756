package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Feed   *FeedCommand
	Add    *AddCommand
	Import *ImportCommand
	Top    *TopCommand
	Open   *OpenCommand
	Status *StatusCommand
	Prune  *PruneCommand
	Purge  *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "activity"
	parser.LongDescription = "Local browsing activity feed: search, day grouping and browsing sessions."

	cmds := &commands{
		Feed:   &FeedCommand{globals: &globals, version: version},
		Add:    &AddCommand{globals: &globals, version: version},
		Import: &ImportCommand{globals: &globals, version: version},
		Top:    &TopCommand{globals: &globals, version: version},
		Open:   &OpenCommand{globals: &globals, version: version},
		Status: &StatusCommand{globals: &globals, version: version},
		Prune:  &PruneCommand{globals: &globals, version: version},
		Purge:  &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("feed", "Show the activity feed", "Show visits grouped by day and browsing session. Extra arguments form a search query.", cmds.Feed)
	parser.AddCommand("add", "Record a visit", "Record a visit by hand.", cmds.Add)
	parser.AddCommand("import", "Import visits from JSON", "Import visit records from a JSON array or JSON lines file.", cmds.Import)
	parser.AddCommand("top", "List top sites", "List the most visited sites.", cmds.Top)
	parser.AddCommand("open", "Print a stored visit", "Print the stored record of a single visit.", cmds.Open)
	parser.AddCommand("status", "Show database statistics", "Show database statistics and configuration summary.", cmds.Status)
	parser.AddCommand("prune", "Apply retention pruning", "Delete visits older than the retention period.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL activity data", "Delete ALL visits. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the activity CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// --version is valid without a subcommand, which go-flags would reject.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("activity %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
