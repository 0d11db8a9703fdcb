package cliutil

import (
	"fmt"
	"runtime"

	"github.com/jxo-me/porkbun-ddns/core/logger"
)

type BuildInfo struct {
	GoOS        string `json:"go_os"`
	GoVersion   string `json:"go_version"`
	GoArch      string `json:"go_arch"`
	BuildType   string `json:"build_type"`
	DDNSVersion string `json:"ddns_version"`
}

func GetBuildInfo(buildType, version string) *BuildInfo {
	return &BuildInfo{
		GoOS:        runtime.GOOS,
		GoVersion:   runtime.Version(),
		GoArch:      runtime.GOARCH,
		BuildType:   buildType,
		DDNSVersion: version,
	}
}

func (bi *BuildInfo) Log(log logger.ILogger) {
	log.Infof("Version %s%s", bi.DDNSVersion, bi.GetBuildTypeMsg())
	log.WithFields(map[string]any{
		"GOOS":      bi.GoOS,
		"GOVersion": bi.GoVersion,
		"GoArch":    bi.GoArch,
	}).Info("Generated build info")
}

func (bi *BuildInfo) OSArch() string {
	return fmt.Sprintf("%s_%s", bi.GoOS, bi.GoArch)
}

func (bi *BuildInfo) GetBuildTypeMsg() string {
	if bi.BuildType == "" {
		return ""
	}
	return fmt.Sprintf(" with %s", bi.BuildType)
}
