package main

import (
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	"github.com/toejough/serverlaunch/internal/config"
	"github.com/toejough/serverlaunch/internal/sh"
)

func TestMain(m *testing.M) {
	switch os.Getenv(helperEnv) {
	case "":
	case "serve":
		time.Sleep(time.Minute)
		os.Exit(0)
	case "launcher":
		// Act as the launcher itself; its server child is the "serve" helper.
		exe, err := os.Executable()
		if err != nil {
			os.Exit(2)
		}

		_ = os.Setenv(helperEnv, "serve")

		os.Exit(newLaunchRunner([]string{
			"--interpreter", exe, "--script", "/srv/backend/server.js", "--log-level", "info", "--no-color",
		}).run())
	default:
		os.Exit(2)
	}

	os.Exit(m.Run())
}

func TestRun_BadConfig(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	r, _, stderr := newRunner([]string{"--log-level", "chatty"}, nil, "")

	g.Expect(r.run()).To(Equal(exitConfigError))
	g.Expect(string(stderr.Contents())).To(ContainSubstring("unknown log level"))
}

func TestRun_Help(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	r, stdout, stderr := newRunner([]string{"--help"}, nil, "")

	g.Expect(r.run()).To(Equal(0))
	g.Expect(string(stderr.Contents())).To(ContainSubstring("Usage:"))
	g.Expect(stdout.Contents()).To(BeEmpty())
}

func TestRun_MissingInterpreter(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	env := map[string]string{config.EnvInterpreter: "serverlaunch-missing-interpreter"}
	r, stdout, stderr := newRunner(nil, env, "\n")

	g.Expect(r.run()).To(Equal(1))
	g.Expect(string(stderr.Contents())).To(MatchRegexp(`Failed to start Node\.js backend\. Error: [1-9][0-9]*`))
	g.Expect(stdout.Contents()).To(BeEmpty())
}

func TestRun_StartsAndStops(t *testing.T) {
	t.Setenv(helperEnv, "serve")
	g := NewWithT(t)

	exe, err := os.Executable()
	g.Expect(err).NotTo(HaveOccurred())

	r, stdout, stderr := newRunner(
		[]string{"--interpreter", exe, "--script", "/srv/backend/server.js", "--name", "API", "--stop-on-signal"},
		nil,
		"\n",
	)

	g.Expect(r.run()).To(Equal(0))
	g.Expect(string(stdout.Contents())).To(Equal("API server is running. Press ENTER to stop it...\nAPI server stopped.\n"))
	g.Expect(stderr.Contents()).To(BeEmpty())
}

// unexported constants.
const (
	helperEnv   = "SERVERLAUNCH_MAIN_HELPER"
	waitTimeout = 10 * time.Second
)

func newRunner(args []string, env map[string]string, input string) (*launchRunner, *gbytes.Buffer, *gbytes.Buffer) {
	stdout := gbytes.NewBuffer()
	stderr := gbytes.NewBuffer()

	processEnv := sh.DefaultProcessEnv()
	processEnv.Stdout = gbytes.NewBuffer()
	processEnv.Stderr = gbytes.NewBuffer()

	return &launchRunner{
		args:   args,
		getenv: func(key string) string { return env[key] },
		stdin:  strings.NewReader(input),
		stdout: stdout,
		stderr: stderr,
		env:    processEnv,
		exit:   os.Exit,
	}, stdout, stderr
}
