package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that provide defaults for the flags.
const (
	envSetBits   = "CSIM_S"
	envLines     = "CSIM_E"
	envBlockBits = "CSIM_B"
	envTrace     = "CSIM_TRACE"
	envPolicy    = "CSIM_POLICY"
)

type options struct {
	setBits   int
	lines     int
	blockBits int
	tracePath string
	verbose   bool
	policy    string

	recordPath  string
	cpuProfile  string
	monitor     bool
	monitorPort int
	openBrowser bool
}

var errMissingArgument = errors.New("missing required command line argument")

// loadEnvFile reads a .env file into the environment if one exists. Variables
// already set are kept.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}

	return v
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return fallback
}

func (o options) validate() error {
	if o.setBits == 0 || o.lines == 0 || o.blockBits == 0 || o.tracePath == "" {
		return errMissingArgument
	}

	return nil
}
