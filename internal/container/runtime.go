// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs the remote browser a harvest drives. It detects
// docker or podman, makes sure the browser image is present and starts it
// detached with its control port published on localhost.
package container

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"

	// BrowserPort is the control port the go-rod browser image listens on.
	BrowserPort = 7317
)

// Runtime provides the container operations a harvest needs.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available() bool

	// ImageExists checks whether the named image exists locally.
	// Returns nil when the image is found, or an error describing the failure.
	ImageExists(image string) error

	// Pull fetches image from its registry.
	Pull(ctx context.Context, image string) error

	// Start runs image detached, publishing hostPort on 127.0.0.1 to the
	// container's BrowserPort, and returns the container id.
	Start(ctx context.Context, image string, hostPort int) (string, error)

	// Stop stops and removes the container.
	Stop(ctx context.Context, id string) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// runtime implements Runtime for a specific container binary. Both Docker
// and Podman share the same logic; they differ only in binary name and the
// subcommand used to check image existence.
type runtime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) ImageExists(image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Pull(ctx context.Context, image string) error {
	if _, err := r.exec.Output(ctx, r.bin, "pull", image); err != nil {
		return fmt.Errorf("pulling %s with %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Start(ctx context.Context, image string, hostPort int) (string, error) {
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("127.0.0.1:%d:%d", hostPort, BrowserPort),
		image,
	}
	out, err := r.exec.Output(ctx, r.bin, args...)
	if err != nil {
		return "", fmt.Errorf("starting %s container %s: %w", r.bin, image, err)
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		return "", fmt.Errorf("starting %s container %s: no container id", r.bin, image)
	}
	return id, nil
}

func (r *runtime) Stop(ctx context.Context, id string) error {
	if _, err := r.exec.Output(ctx, r.bin, "stop", id); err != nil {
		return fmt.Errorf("stopping %s container %s: %w", r.bin, id, err)
	}
	return nil
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available() {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available() {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}

// Browser is a running browser container.
type Browser struct {
	rt   Runtime
	id   string
	port int
}

// StartBrowser starts image on hostPort, pulling it first when it is not
// present locally.
func StartBrowser(ctx context.Context, rt Runtime, image string, hostPort int) (*Browser, error) {
	if hostPort <= 0 {
		hostPort = BrowserPort
	}
	if err := rt.ImageExists(image); err != nil {
		if err := rt.Pull(ctx, image); err != nil {
			return nil, err
		}
	}
	id, err := rt.Start(ctx, image, hostPort)
	if err != nil {
		return nil, err
	}
	return &Browser{rt: rt, id: id, port: hostPort}, nil
}

// ControlURL is the websocket address of the browser manager.
func (b *Browser) ControlURL() string {
	return fmt.Sprintf("ws://127.0.0.1:%d", b.port)
}

// ID returns the container id.
func (b *Browser) ID() string { return b.id }

// Stop stops the container.
func (b *Browser) Stop(ctx context.Context) error {
	return b.rt.Stop(ctx, b.id)
}
