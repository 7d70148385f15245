package log

// LoggerConfig drives Init. It is embedded in the application config
// under the `log:` key.
type LoggerConfig struct {
	Level     string           `mapstructure:"level" yaml:"level"`
	Pattern   string           `mapstructure:"pattern" yaml:"pattern"`
	Time      string           `mapstructure:"time" yaml:"time"`
	Appenders []AppenderConfig `mapstructure:"appenders" yaml:"appenders"`
}

// AppenderConfig selects one output: type "console" or "file".
type AppenderConfig struct {
	Type string          `mapstructure:"type" yaml:"type"`
	File FileAppenderOpt `mapstructure:"file" yaml:"file,omitempty"`
}

// FileAppenderOpt configures the rotating file appender.
type FileAppenderOpt struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`       // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // rotated files kept
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`         // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DefaultConfig is console-only info logging with the standard pattern.
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:   "info",
		Pattern: "%time [%level] %msg%n",
		Time:    "2006-01-02 15:04:05.000",
		Appenders: []AppenderConfig{
			{Type: "console"},
		},
	}
}
