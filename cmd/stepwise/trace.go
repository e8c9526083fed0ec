package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stepwise-dev/stepwise"
	"github.com/stepwise-dev/stepwise/debug"
	"github.com/stepwise-dev/stepwise/session"
	"github.com/stepwise-dev/stepwise/store"
)

var (
	jsonFlag    bool
	exportFlag  string
	noColorFlag bool
)

var traceCmd = &cobra.Command{
	Use:   "trace FILE",
	Short: "Trace a program and replay it step by step",
	Long:  "FILE is either a source file or a .toml config naming one. The program runs once under instrumentation; every step is then printed in order.",
	Args:  cobra.MinimumNArgs(1),
	Run:   traceCommand,
}

func init() {
	traceCmd.Flags().BoolVar(&jsonFlag, "json", false, "Dump the snapshot sequence as JSON instead of replaying it")
	traceCmd.Flags().StringVar(&exportFlag, "export", "", "Write the computed trace to a file in msgpack form")
	traceCmd.Flags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
}

func traceCommand(cmd *cobra.Command, args []string) {
	srcPath := args[0]
	var varOverride []string
	cacheSize := 0

	if strings.HasSuffix(srcPath, ".toml") {
		cfg, err := stepwise.LoadConfigFromFile(srcPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Couldn't load config file")
		}
		srcPath = cfg.Trace.File
		varOverride = cfg.Trace.Variables
		cacheSize = cfg.Display.CacheSize
		if cfg.Display.NoColor {
			noColorFlag = true
		}
	}

	src, err := os.ReadFile(srcPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't read source file")
	}
	code := string(src)

	mgr := session.NewManager(store.NewLRUStore(store.NewMemoryStore(), cacheSize))
	var dbg *debug.Debugger
	if len(varOverride) > 0 {
		dbg = debug.New(code, varOverride)
	} else {
		sess := mgr.Open(code)
		dbg = sess.Debugger
	}

	if exportFlag != "" {
		exportTrace(code, dbg)
	}

	if jsonFlag {
		b, err := json.MarshalIndent(dbg.Trace(), "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("can't serialize trace")
		}
		fmt.Println(string(b))
		return
	}

	replay(dbg)
}

func exportTrace(code string, dbg *debug.Debugger) {
	entry := &store.TraceEntry{Source: code, Lines: dbg.Lines(), Snapshots: dbg.Trace()}
	f, err := os.Create(exportFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't create export file")
	}
	defer f.Close()
	if err := entry.Serialize(f); err != nil {
		log.Fatal().Err(err).Msg("Couldn't write export file")
	}
	log.Info().Str("path", exportFlag).Int("snapshots", len(dbg.Trace())).Msg("trace exported")
}

func replay(dbg *debug.Debugger) {
	if noColorFlag {
		color.Disable()
	}
	step := 0
	for !dbg.Finished() {
		dbg.Step()
		st := dbg.State()
		if st.CurrentLine < 0 {
			break
		}
		step++
		printState(step, st)
	}
	if step == 0 {
		fmt.Fprintln(os.Stderr, color.Red.Sprint("No snapshots: the program could not be compiled."))
	}
}

func printState(step int, st debug.State) {
	header := fmt.Sprintf("step %d", step)
	if st.Finished {
		header += " (final)"
	}
	fmt.Println(color.Cyan.Sprint(header))
	if st.CurrentLine >= 0 && st.CurrentLine < len(st.Lines) {
		fmt.Printf("  %s %s\n", color.Yellow.Sprintf("%3d |", st.CurrentLine+1), st.Lines[st.CurrentLine])
	}

	names := make([]string, 0, len(st.Locals))
	for name := range st.Locals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("      %s = %s  %s\n",
			color.Green.Sprint(name),
			st.Locals[name],
			color.Gray.Sprintf("[%s, %s]", st.TypeInfo[name], st.ScopeInfo[name]))
	}
	for _, line := range st.OutputLines {
		fmt.Printf("      %s %s\n", color.Magenta.Sprint(">"), line)
	}
	fmt.Println()
}
