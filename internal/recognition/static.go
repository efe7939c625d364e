package recognition

import (
	"context"
	"fmt"
	"os"
)

// StaticTester checks credential shape without contacting any backend: keys
// must be present, regions set, and credential files must exist on disk.
type StaticTester struct{}

func (StaticTester) Test(_ context.Context, creds Credentials) Result {
	switch creds.Service {
	case "whisper":
		if creds.WhisperKey == "" {
			return Result{Message: "whisper requires an API key"}
		}
		return Result{Success: true, Message: "whisper credentials look valid"}
	case "azure":
		if creds.AzureKey == "" {
			return Result{Message: "azure requires an API key"}
		}
		if creds.AzureRegion == "" {
			return Result{Message: "azure requires a region"}
		}
		return Result{Success: true, Message: "azure credentials look valid"}
	case "google":
		if creds.GoogleCredentials == "" {
			return Result{Message: "google requires a credentials file"}
		}
		if _, err := os.Stat(creds.GoogleCredentials); err != nil {
			return Result{Message: fmt.Sprintf("google credentials file not readable: %v", err)}
		}
		return Result{Success: true, Message: "google credentials look valid"}
	default:
		return Result{Message: fmt.Sprintf("unknown recognition service %q", creds.Service)}
	}
}
