// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool   // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool   // "bin arg1 arg2" -> whether RunSilent succeeds
	output        map[string]string // "bin arg1 arg2" -> stdout; missing keys fail
	outputFunc    func(key string) ([]byte, error)
	calls         []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	key := name + " " + strings.Join(args, " ")
	m.calls = append(m.calls, key)
	if m.outputFunc != nil {
		return m.outputFunc(key)
	}
	if out, ok := m.output[key]; ok {
		return []byte(out), nil
	}
	if strings.Contains(key, " pull ") || strings.Contains(key, " stop ") {
		return nil, nil
	}
	return nil, errors.New("command failed: " + key)
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name: "neither available",
			exec: &mockExecutor{
				availableBins: map[string]bool{},
				runnableCmds:  map[string]bool{},
			},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name: "both available, docker preferred",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"docker info": true, "podman info": true},
			},
			wantName: "docker",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(tt.exec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), "no container runtime available") {
					t.Errorf("error should mention no runtime available, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		image   string
		cmds    map[string]bool
		wantErr bool
	}{
		{
			name:  "docker image exists",
			mkRT:  func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			image: "ghcr.io/go-rod/rod:latest",
			cmds:  map[string]bool{"docker image inspect ghcr.io/go-rod/rod:latest": true},
		},
		{
			name:    "docker image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			image:   "ghcr.io/go-rod/rod:latest",
			cmds:    map[string]bool{},
			wantErr: true,
		},
		{
			name:  "podman image exists",
			mkRT:  func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			image: "ghcr.io/go-rod/rod:latest",
			cmds:  map[string]bool{"podman image exists ghcr.io/go-rod/rod:latest": true},
		},
		{
			name:    "podman image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			image:   "ghcr.io/go-rod/rod:latest",
			cmds:    map[string]bool{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{runnableCmds: tt.cmds}
			rt := tt.mkRT(exec)
			err := rt.ImageExists(tt.image)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.image) {
					t.Errorf("error should mention image name, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestStart(t *testing.T) {
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		out     string
		outErr  error
		wantID  string
		wantCmd string
		wantErr bool
	}{
		{
			name:    "docker publishes the control port on localhost",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			out:     "abc123\n",
			wantID:  "abc123",
			wantCmd: "docker run -d --rm -p 127.0.0.1:9222:7317 ghcr.io/go-rod/rod",
		},
		{
			name:    "podman uses the same arguments",
			mkRT:    func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			out:     "def456",
			wantID:  "def456",
			wantCmd: "podman run -d --rm -p 127.0.0.1:9222:7317 ghcr.io/go-rod/rod",
		},
		{
			name:    "run failure returns wrapped error",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			outErr:  errors.New("port is already allocated"),
			wantErr: true,
		},
		{
			name:    "empty id is an error",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			out:     "  ",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{
				outputFunc: func(string) ([]byte, error) { return []byte(tt.out), tt.outErr },
			}
			rt := tt.mkRT(exec)
			id, err := rt.Start(context.Background(), "ghcr.io/go-rod/rod", 9222)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("got id %q, want %q", id, tt.wantID)
			}
			if len(exec.calls) != 1 || exec.calls[0] != tt.wantCmd {
				t.Errorf("got calls %v, want [%s]", exec.calls, tt.wantCmd)
			}
		})
	}
}

func TestStartBrowser(t *testing.T) {
	t.Run("pulls a missing image", func(t *testing.T) {
		exec := &mockExecutor{
			runnableCmds: map[string]bool{},
			output:       map[string]string{"docker run -d --rm -p 127.0.0.1:7317:7317 rod": "cid"},
		}
		b, err := StartBrowser(context.Background(), newDockerRuntime(exec), "rod", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if exec.calls[0] != "docker pull rod" {
			t.Errorf("first call = %q, want a pull", exec.calls[0])
		}
		if b.ControlURL() != "ws://127.0.0.1:7317" {
			t.Errorf("ControlURL = %q", b.ControlURL())
		}
		if b.ID() != "cid" {
			t.Errorf("ID = %q, want cid", b.ID())
		}

		if err := b.Stop(context.Background()); err != nil {
			t.Fatalf("Stop: %v", err)
		}
		if last := exec.calls[len(exec.calls)-1]; last != "docker stop cid" {
			t.Errorf("last call = %q, want docker stop cid", last)
		}
	})

	t.Run("present image is not pulled", func(t *testing.T) {
		exec := &mockExecutor{
			runnableCmds: map[string]bool{"podman image exists rod": true},
			output:       map[string]string{"podman run -d --rm -p 127.0.0.1:9000:7317 rod": "cid"},
		}
		if _, err := StartBrowser(context.Background(), newPodmanRuntime(exec), "rod", 9000); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, c := range exec.calls {
			if strings.Contains(c, "pull") {
				t.Errorf("unexpected pull: %q", c)
			}
		}
	})

	t.Run("pull failure stops startup", func(t *testing.T) {
		exec := &mockExecutor{
			runnableCmds: map[string]bool{},
			outputFunc:   func(string) ([]byte, error) { return nil, errors.New("denied") },
		}
		if _, err := StartBrowser(context.Background(), newDockerRuntime(exec), "rod", 0); err == nil {
			t.Fatal("expected error, got nil")
		}
		if len(exec.calls) != 1 {
			t.Errorf("got calls %v, want only the pull", exec.calls)
		}
	})
}

func TestRuntimeName(t *testing.T) {
	exec := &mockExecutor{}
	docker := newDockerRuntime(exec)
	if docker.Name() != "docker" {
		t.Errorf("docker runtime name = %q, want %q", docker.Name(), "docker")
	}
	podman := newPodmanRuntime(exec)
	if podman.Name() != "podman" {
		t.Errorf("podman runtime name = %q, want %q", podman.Name(), "podman")
	}
}
