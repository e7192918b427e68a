//go:build linux

package service

import "github.com/edirooss/streamrec/internal/infrastructure/processmgr"

// ProcessSpawner adapts the process launcher to CaptureSpawner.
type ProcessSpawner struct {
	launcher *processmgr.CaptureLauncher
}

func NewProcessSpawner(l *processmgr.CaptureLauncher) *ProcessSpawner {
	return &ProcessSpawner{launcher: l}
}

func (s *ProcessSpawner) Spawn(channel, outputPath string) (CaptureHandle, error) {
	p, err := s.launcher.Spawn(channel, outputPath)
	if err != nil {
		// Never hand out a typed nil inside the interface.
		return nil, err
	}
	return p, nil
}
