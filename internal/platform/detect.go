package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using the running host.
type RealDetector struct {
	logger logging.Logger
}

// NewDetector creates a new platform detector.
func NewDetector(logger logging.Logger) Detector {
	return &RealDetector{logger: logging.OrNop(logger)}
}

// Detect resolves the host fingerprint. The processor string is the
// kernel-reported machine from gopsutil; the machine string is GOARCH.
//
// On Linux, distro details are added when gopsutil can read them. A failed
// distro lookup is not an error; a cancelled context is.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	processor, err := host.KernelArch()
	if err != nil {
		d.logger.Debug("kernel architecture unavailable", "error", err)
		processor = ""
	}

	fp, err := Resolve(runtime.GOOS, processor, runtime.GOARCH, d.logger)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}

	info := &Info{
		Fingerprint: fp,
		Processor:   processor,
		Machine:     runtime.GOARCH,
	}

	if runtime.GOOS == "linux" {
		distro, family, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			return info, nil
		}

		distro = normalizePlatform(distro)
		if distro != "" {
			info.Distro = distro
			info.Family = mapFamily(family)
			info.Version = normalizePlatform(version)
		}
	}

	return info, nil
}

// StaticDetector returns a fixed Info. Useful when the fingerprint has
// already been resolved or must be pinned.
type StaticDetector struct {
	Info *Info
}

// Detect returns the stored Info.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if s.Info == nil {
		return nil, fmt.Errorf("platform detection failed: no platform info")
	}
	return s.Info, nil
}
