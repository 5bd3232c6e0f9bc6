// Package config holds the CORE's closed configuration record: the
// tunables enumerated in the specification, plus MeanWindow (the
// running-mean half-width of the peak threshold) and ConfidenceMode.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// CurrentSchemaVersion is the fingerprint schema version this build
// advertises. Bump it whenever a parameter below that affects hash
// derivation changes, per the schema-isolation invariant.
const CurrentSchemaVersion = 1

// ConfidenceMode selects which of the two scoring formulas the matcher
// uses to compute the winning candidate's confidence.
type ConfidenceMode int

const (
	// ConfidenceRatio is the default: peak_count_1 / (peak_count_2 + peak_count_1*beta).
	ConfidenceRatio ConfidenceMode = iota
	// ConfidenceShare is the alternative from the original implementation:
	// peak_count_1 / sum(all aligned peak counts).
	ConfidenceShare
)

// Config is the complete, closed set of tunables the CORE consumes.
// Unknown configuration is a programming error, not a warning: there is
// no free-form document to validate against.
type Config struct {
	// Resampler / framer (4.A)
	Fs int // canonical sample rate, Hz
	W  int // FFT window size (samples)
	H  int // hop size (samples)

	// Peak picker (4.C)
	DeltaT         int     // time neighborhood half-width, frames
	DeltaF         int     // frequency neighborhood half-width, bins
	Alpha          float64 // dynamic threshold multiplier
	GAbs           float64 // absolute magnitude floor
	TargetDensity  float64 // target peaks/sec
	MeanWindow     int     // half-width, frames, of the running local-mean threshold window

	// Hasher / target zone (4.D)
	DeltaMin int // minimum target offset, frames
	DeltaMax int // maximum target offset, frames
	K        int // max targets considered per anchor
	FFan     int // frequency fan-out half-width, bins

	// Index (4.E)
	PMax int // hot-hash posting-count cap

	// Matcher (4.F)
	NMin           int     // minimum peak_count_1 to accept a match
	Beta           float64 // ratio-test slack term
	ConfThreshold  float64 // minimum confidence to report a match
	ConfidenceMode ConfidenceMode

	SchemaVersion int
}

// Default returns the specification's recommended defaults.
func Default() Config {
	return Config{
		Fs: 11025,
		W:  4096,
		H:  2048,

		DeltaT:        10,
		DeltaF:        10,
		Alpha:         2.5,
		GAbs:          1e-6,
		TargetDensity: 40,
		MeanWindow:    30,

		DeltaMin: 1,
		DeltaMax: 100,
		K:        5,
		FFan:     100,

		PMax: 200,

		NMin:           5,
		Beta:           0.1,
		ConfThreshold:  0.6,
		ConfidenceMode: ConfidenceRatio,

		SchemaVersion: CurrentSchemaVersion,
	}
}

// Header is the shape of a Config that must match between a persisted
// store and the runtime that opens it.
type Header struct {
	SchemaVersion int
	Fs            int
	W             int
	H             int
	PMax          int
}

// Header derives the store header this configuration would produce.
func (c Config) Header() Header {
	return Header{
		SchemaVersion: c.SchemaVersion,
		Fs:            c.Fs,
		W:             c.W,
		H:             c.H,
		PMax:          c.PMax,
	}
}

// Compatible reports whether an opened store's header matches this
// configuration in every field the schema pins down.
func (h Header) Compatible(other Header) bool {
	return h == other
}

// LoadEnv loads a .env file if present (a missing file is not an error)
// and overrides the given base configuration from recognized environment
// variables. Recognized keys that fail to parse are reported as errors;
// unrecognized environment variables are ignored.
func LoadEnv(envFile string, base Config) (Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	cfg := base
	var err error
	if cfg.Fs, err = envInt("FFTRACK_FS", cfg.Fs); err != nil {
		return cfg, err
	}
	if cfg.W, err = envInt("FFTRACK_W", cfg.W); err != nil {
		return cfg, err
	}
	if cfg.H, err = envInt("FFTRACK_H", cfg.H); err != nil {
		return cfg, err
	}
	if cfg.PMax, err = envInt("FFTRACK_P_MAX", cfg.PMax); err != nil {
		return cfg, err
	}
	if cfg.NMin, err = envInt("FFTRACK_N_MIN", cfg.NMin); err != nil {
		return cfg, err
	}
	if cfg.Beta, err = envFloat("FFTRACK_BETA", cfg.Beta); err != nil {
		return cfg, err
	}
	if cfg.ConfThreshold, err = envFloat("FFTRACK_CONF_THRESHOLD", cfg.ConfThreshold); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}
