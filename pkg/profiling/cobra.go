package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
)

// CobraProfiler wires profiling flags into a command tree.
type CobraProfiler struct {
	cpuProfileFile *os.File
	cpuProfilePath string
	memProfilePath string
	timing         bool
}

// NewCobraProfiler creates a profiler with all outputs disabled.
func NewCobraProfiler() *CobraProfiler {
	return &CobraProfiler{}
}

// AddFlags registers --cpu-profile, --mem-profile and --timing.
func (p *CobraProfiler) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&p.cpuProfilePath, "cpu-profile", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&p.memProfilePath, "mem-profile", "", "Write heap profile to file on exit")
	cmd.PersistentFlags().BoolVar(&p.timing, "timing", false, "Print a timing summary on exit")
}

// Attach installs the PreRun/PostRun hooks on cmd.
func (p *CobraProfiler) Attach(cmd *cobra.Command) {
	p.AddFlags(cmd)
	cmd.PersistentPreRunE = p.PreRun
	cmd.PersistentPostRun = p.PostRun
}

// PreRun starts the requested profiles.
func (p *CobraProfiler) PreRun(cmd *cobra.Command, args []string) error {
	if p.timing {
		Enable()
	}

	if p.cpuProfilePath != "" {
		f, err := os.Create(p.cpuProfilePath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		p.cpuProfileFile = f
	}
	return nil
}

// PostRun writes the profiles and the timing summary to stderr.
func (p *CobraProfiler) PostRun(cmd *cobra.Command, args []string) {
	errOut := cmd.ErrOrStderr()

	if p.cpuProfileFile != nil {
		pprof.StopCPUProfile()
		p.cpuProfileFile.Close()
		p.cpuProfileFile = nil
		fmt.Fprintf(errOut, "CPU profile written to %s\n", p.cpuProfilePath)
	}

	if p.memProfilePath != "" {
		if err := writeHeapProfile(p.memProfilePath); err != nil {
			fmt.Fprintf(errOut, "could not write memory profile: %v\n", err)
		} else {
			fmt.Fprintf(errOut, "Memory profile written to %s\n", p.memProfilePath)
		}
	}

	if p.timing {
		Summarize(errOut)
	}
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC() // up-to-date statistics
	return pprof.WriteHeapProfile(f)
}
