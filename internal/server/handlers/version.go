package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
)

// AppName is reported by the version endpoint.
const AppName = "stationlink"

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

var (
	build     = BuildInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}
	startedAt = time.Now()
)

// SetVersionInfo records the ldflags build values reported by /version.
func SetVersionInfo(version, commit, buildDate string) {
	build = BuildInfo{Version: version, Commit: commit, BuildDate: buildDate}
}

// VersionResponse is the /version body.
type VersionResponse struct {
	App struct {
		Name      string `json:"name"`
		Version   string `json:"version"`
		Commit    string `json:"git_commit"`
		BuildDate string `json:"build_date"`
		GoVersion string `json:"go_version,omitempty"`
	} `json:"app"`
	Dependencies struct {
		Gofulmen string `json:"gofulmen"`
		Crucible string `json:"crucible"`
	} `json:"dependencies"`
	Runtime struct {
		Platform      string `json:"platform"`
		NumCPU        int    `json:"num_cpu"`
		NumGoroutines int    `json:"num_goroutines"`
		UptimeSeconds int64  `json:"uptime_seconds"`
	} `json:"runtime"`
}

// VersionHandler reports build, library and runtime details.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	var resp VersionResponse
	resp.App.Name = AppName
	resp.App.Version = build.Version
	resp.App.Commit = build.Commit
	resp.App.BuildDate = build.BuildDate
	resp.App.GoVersion = runtime.Version()

	deps := crucible.GetVersion()
	resp.Dependencies.Gofulmen = deps.Gofulmen
	resp.Dependencies.Crucible = deps.Crucible

	resp.Runtime.Platform = runtime.GOOS + "/" + runtime.GOARCH
	resp.Runtime.NumCPU = runtime.NumCPU()
	resp.Runtime.NumGoroutines = runtime.NumGoroutine()
	resp.Runtime.UptimeSeconds = int64(time.Since(startedAt).Seconds())

	writeJSON(w, http.StatusOK, resp)
}
