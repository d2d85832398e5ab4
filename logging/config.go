package logging

// Config is the `logging` section of slotsync.yml. Every field is optional.
type Config struct {
	// Level is one of trace, debug, info, warn or error. SLOTSYNC_LOG_LEVEL wins.
	Level string `yaml:"level"`

	// ReportCaller adds file:line to each entry. SLOTSYNC_LOG_CALLER=true also enables it.
	ReportCaller bool `yaml:"report_caller"`

	File   FileSinkConfig `yaml:"file"`
	Format FormatConfig   `yaml:"format"`
}

// FileSinkConfig enables a second sink that appends to a log file.
// An empty Path logs to slotsync.log in the state directory.
type FileSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// FormatConfig selects how entries are rendered.
type FormatConfig struct {
	// Preset is "default", "simple" or "json".
	Preset           string `yaml:"preset"`
	DisableTimestamp bool   `yaml:"disable_timestamp"`
	DisableComponent bool   `yaml:"disable_component"`
	// Milliseconds adds sub-second precision to timestamps, useful when
	// following reconnect timing.
	Milliseconds bool `yaml:"milliseconds"`
	// StructuredToStderr is "auto", "always" or "never". With "auto" stderr
	// receives entries when debugging or when it is not a terminal.
	StructuredToStderr string `yaml:"structured_to_stderr"`
}
