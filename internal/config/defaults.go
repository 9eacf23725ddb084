package config

// Default settings values.
const (
	DefaultEngineCommand = "runepanet"
	DefaultFailureStatus = 100
	DefaultReportFile    = "test.rpt"
	DefaultOutputFile    = "test.out"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	EngineEnvVar         = "REGTEST_ENGINE"
	DockerImageEnvVar    = "REGTEST_DOCKER_IMAGE"
)

// DefaultEngineArgs are passed to the engine when none are configured.
var DefaultEngineArgs = []string{"{inp}", "{rpt}", "{out}"}

// applyDefaults fills in default values for unset settings.
func applyDefaults(s *Settings) {
	applyEngineDefaults(s)
	if s.ReportFile == "" {
		s.ReportFile = DefaultReportFile
	}
	if s.OutputFile == "" {
		s.OutputFile = DefaultOutputFile
	}
	if s.Log.Level == "" {
		s.Log.Level = DefaultLogLevel
	}
	if s.Log.Format == "" {
		s.Log.Format = DefaultLogFormat
	}
}

func applyEngineDefaults(s *Settings) {
	if s.Engine.Command == "" {
		s.Engine.Command = DefaultEngineCommand
	}
	if len(s.Engine.Args) == 0 {
		s.Engine.Args = append([]string(nil), DefaultEngineArgs...)
	}
	if s.Engine.FailureStatus == nil {
		status := DefaultFailureStatus
		s.Engine.FailureStatus = &status
	}
}
