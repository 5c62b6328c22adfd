package config

import (
	"os"
	"sync"
)

var (
	inContainerOnce sync.Once
	inContainer     bool
)

// InContainer reports whether the process runs inside a Docker container.
// The /.dockerenv probe runs once.
func InContainer() bool {
	inContainerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inContainer = err == nil
	})
	return inContainer
}

// ResolveHost maps loopback hosts to host.docker.internal when running in a
// container, so a datasource or Redis on the developer machine stays reachable.
func ResolveHost(host string) string {
	return resolveHost(host, InContainer())
}

func resolveHost(host string, containerized bool) string {
	if !containerized {
		return host
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return "host.docker.internal"
	}
	return host
}
