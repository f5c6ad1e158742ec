package tests

import (
	"encoding/json"
	"net/http"
	"testing"
)

//
// version tests
//

func TestVersionCheck(t *testing.T) {
	requireEndpoint(t)

	expected := http.StatusOK
	status, body := getURL(t, "/version")
	if status != expected {
		t.Fatalf("Expected %v, got %v\n", expected, status)
	}

	var version struct {
		Build     string `json:"build"`
		GoVersion string `json:"go_version"`
	}

	if err := json.Unmarshal(body, &version); err != nil {
		t.Fatalf("invalid version json: %v", err)
	}

	if len(version.Build) == 0 {
		t.Fatalf("Expected non-zero length version string\n")
	}

	if len(version.GoVersion) == 0 {
		t.Fatalf("Expected go version in version info\n")
	}
}

//
// end of file
//
