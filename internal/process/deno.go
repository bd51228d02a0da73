package process

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// InspectAddress is where the inspector listens when Options.Inspect is set.
const InspectAddress = "127.0.0.1:9229"

// ListenAddressEnv carries Options.ListenAddress into the script's environment.
const ListenAddressEnv = "LISTEN_ADDRESS"

// DenoCheck returns a BuildFunc type checking an entrypoint with the given
// deno executable. The selected type libraries are written to a generated
// tsconfig under configDir.
func DenoCheck(denoPath, configDir string) BuildFunc {
	return func(entrypoint *url.URL, opts Options) (Command, error) {
		tsconfig, err := writeTSConfig(configDir, opts.Libs)
		if err != nil {
			return Command{}, err
		}

		args := []string{"check", "--config", tsconfig}
		if opts.Reload {
			args = append(args, "--reload")
		}

		args = append(args, entrypoint.String())

		return Command{Path: denoPath, Args: args}, nil
	}
}

// DenoRun returns a BuildFunc running an entrypoint with the given deno
// executable.
func DenoRun(denoPath string) BuildFunc {
	return func(entrypoint *url.URL, opts Options) (Command, error) {
		args := []string{"run", "--allow-net", "--allow-read", "--allow-env"}

		if opts.NoCheck {
			args = append(args, "--no-check")
		}

		if opts.Inspect {
			args = append(args, "--inspect="+InspectAddress)
		}

		if opts.Reload {
			args = append(args, "--reload")
		}

		args = append(args, entrypoint.String())

		var env []string
		if opts.ListenAddress != "" {
			env = append(env, ListenAddressEnv+"="+opts.ListenAddress)
		}

		return Command{Path: denoPath, Args: args, Env: env}, nil
	}
}

type tsConfig struct {
	CompilerOptions struct {
		Lib []string `json:"lib"`
	} `json:"compilerOptions"`
}

// TSLibs maps the selected libraries onto TypeScript lib names.
func TSLibs(libs Libs) []string {
	out := []string{"esnext"}

	if libs.NS {
		out = append(out, "deno.ns")
	}

	if libs.Window {
		out = append(out, "deno.window")
	}

	if libs.FetchEvent {
		out = append(out, "deno.worker")
	}

	return out
}

func writeTSConfig(dir string, libs Libs) (string, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "deployctl")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	var cfg tsConfig
	cfg.CompilerOptions.Lib = TSLibs(libs)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling tsconfig: %w", err)
	}

	p := filepath.Join(dir, "tsconfig.json")
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", fmt.Errorf("writing tsconfig: %w", err)
	}

	return p, nil
}
