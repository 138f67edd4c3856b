package zmsg

import (
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds server settings loaded from a configuration file. Zero
// values fall back to the same defaults the Option functions use.
type Config struct {
	// Addr is the TCP listen address, for example ":8080".
	Addr string `json:"addr" mapstructure:"addr"`
	// MaxFrameLen caps the payload size of a single frame in bytes.
	MaxFrameLen uint32 `json:"max_frame_len" mapstructure:"max_frame_len"`
	// SendBuffer is the per-connection response queue capacity.
	SendBuffer int `json:"send_buffer" mapstructure:"send_buffer"`
	// IdleTimeout closes a connection with no traffic for this long.
	// Zero disables the idle check.
	IdleTimeout time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`
}

// DefaultConfig returns the settings used when no file is provided.
func DefaultConfig() *Config {
	return &Config{
		Addr:        ":8080",
		MaxFrameLen: DefaultMaxFrameLen,
		SendBuffer:  defaultSendBuffer,
	}
}

// LoadConfig reads a configuration file into a Config. The format is
// inferred from the file extension and defaults to yaml; json and toml
// work the same way.
func LoadConfig(filepath string) (*Config, error) {
	cv := viper.New()

	extension := "yaml"
	if s := strings.Split(filepath, "."); len(s) > 1 {
		extension = s[len(s)-1]
	}
	cv.SetConfigType(extension)
	cv.SetConfigFile(filepath)

	if err := cv.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config %s", filepath)
	}

	conf := DefaultConfig()
	if err := cv.Unmarshal(conf); err != nil {
		return nil, errors.Wrapf(err, "unmarshal config %s", filepath)
	}

	return conf, nil
}

// Options converts the configuration into the equivalent option list
// for NewServer or NewConn.
func (c *Config) Options() []Option {
	return []Option{
		MaxFrameLenOption(c.MaxFrameLen),
		BufferSizeOption(c.SendBuffer),
		IdleTimeoutOption(c.IdleTimeout),
	}
}

// String renders the configuration as a JSON document, mostly for
// startup logging.
func (c *Config) String() string {
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}
