package circuit

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Kinds of circuits a Config can build.
const (
	KindGHZ       = "ghz"
	KindBrickwork = "brickwork"
	KindIsing     = "ising"
	KindOps       = "ops"
)

const (
	DefaultQubits = 8
	DefaultDepth  = 8
	DefaultDT     = 0.05
	DefaultSteps  = 20
)

// Config is a simulation run read from a YAML file.
type Config struct {
	Qubits int `yaml:"qubits"`
	// Initial is the initial product state: "zero", "plus", or a bit string such as "0110".
	Initial string        `yaml:"initial"`
	Circuit CircuitConfig `yaml:"circuit"`

	// MaxDims lists the maximum bond dimensions to simulate, 0 means unlimited.
	MaxDims     []int   `yaml:"maxdims,flow"`
	Canonical   bool    `yaml:"canonical"`
	Renormalize bool    `yaml:"renormalize"`
	Cutoff      float64 `yaml:"cutoff"`

	Observables []Op `yaml:"observables"`
	// DB is the path of the results database, empty for no persistence.
	DB string `yaml:"db"`
}

// CircuitConfig selects a circuit builder and its parameters.
type CircuitConfig struct {
	Kind  string  `yaml:"kind"`
	Depth int     `yaml:"depth"`
	Seed  uint64  `yaml:"seed"`
	J     float64 `yaml:"j"`
	H     float64 `yaml:"h"`
	DT    float64 `yaml:"dt"`
	Steps int     `yaml:"steps"`
	Ops   []Op    `yaml:"ops"`
}

// DefaultConfig returns a brickwork run on the zero state with a range of bond dimensions.
func DefaultConfig() *Config {
	return &Config{
		Qubits:  DefaultQubits,
		Initial: "zero",
		Circuit: CircuitConfig{
			Kind:  KindBrickwork,
			Depth: DefaultDepth,
			J:     1,
			H:     1,
			DT:    DefaultDT,
			Steps: DefaultSteps,
		},
		MaxDims:   []int{1, 2, 4, 8, 16},
		Canonical: true,
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

// ParseConfig decodes YAML over the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func (cfg *Config) Save(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Validate checks the run parameters.
func (cfg *Config) Validate() error {
	if cfg.Qubits < 1 {
		return errors.Errorf("%d qubits", cfg.Qubits)
	}
	if _, err := cfg.InitialState(); err != nil {
		return errors.Wrap(err, "")
	}
	for _, d := range cfg.MaxDims {
		if d < 0 {
			return errors.Errorf("maxdims %v", cfg.MaxDims)
		}
	}
	if cfg.Cutoff < 0 {
		return errors.Errorf("cutoff %f", cfg.Cutoff)
	}
	obs := &Circuit{NumQubits: cfg.Qubits, Ops: cfg.Observables}
	if err := obs.Validate(); err != nil {
		return errors.Wrap(err, "observables")
	}
	return nil
}

// InitialState returns the local vectors of the initial product state.
func (cfg *Config) InitialState() ([][]complex64, error) {
	vectors := make([][]complex64, 0, cfg.Qubits)
	switch s := strings.ToLower(cfg.Initial); {
	case s == "" || s == "zero":
		for range cfg.Qubits {
			vectors = append(vectors, []complex64{1, 0})
		}
	case s == "plus":
		for range cfg.Qubits {
			vectors = append(vectors, []complex64{math.Sqrt2 / 2, math.Sqrt2 / 2})
		}
	default:
		if len(s) != cfg.Qubits {
			return nil, errors.Errorf("initial state %q for %d qubits", cfg.Initial, cfg.Qubits)
		}
		for i, b := range s {
			switch b {
			case '0':
				vectors = append(vectors, []complex64{1, 0})
			case '1':
				vectors = append(vectors, []complex64{0, 1})
			default:
				return nil, errors.Errorf("initial state %q: bit %d", cfg.Initial, i)
			}
		}
	}
	return vectors, nil
}

// Build returns the circuit described by the config.
func (cfg *Config) Build() (*Circuit, error) {
	var c *Circuit
	switch cc := cfg.Circuit; cc.Kind {
	case KindGHZ:
		c = GHZ(cfg.Qubits)
	case KindBrickwork:
		c = Brickwork(cfg.Qubits, cc.Depth, cc.Seed)
	case KindIsing:
		var err error
		c, err = IsingTrotter(cfg.Qubits, cc.J, cc.H, cc.DT, cc.Steps)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
	case KindOps:
		c = &Circuit{NumQubits: cfg.Qubits, Ops: cc.Ops}
	default:
		return nil, errors.Errorf("unknown circuit kind %q", cc.Kind)
	}

	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%#v", cfg.Circuit))
	}
	return c.Route(), nil
}
